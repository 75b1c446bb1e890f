package lifecycle

import (
	"fmt"

	"github.com/ethanbaker/interviewer/pkg/utils"
)

// Instructions are shown to a candidate before the interview starts
type Instructions struct {
	GeneralRules          []string `json:"general_rules" yaml:"general_rules"`
	InterviewFormat       []string `json:"interview_format" yaml:"interview_format"`
	TechnicalRequirements []string `json:"technical_requirements" yaml:"technical_requirements"`
	PreparationTips       []string `json:"preparation_tips" yaml:"preparation_tips"`
}

// QuestionBank is the default question set and candidate instructions
type QuestionBank struct {
	Questions    []string     `json:"questions" yaml:"questions"`
	Instructions Instructions `json:"instructions" yaml:"instructions"`
}

// DefaultQuestionBank is used when no bank file is configured
func DefaultQuestionBank() *QuestionBank {
	return &QuestionBank{
		Questions: []string{
			"Tell me about yourself and your background in software development.",
			"What programming languages are you most comfortable with, and why?",
			"Describe a challenging project you worked on and how you overcame obstacles.",
			"How do you stay updated with the latest technologies and industry trends?",
			"Where do you see yourself in your career in the next 5 years?",
		},
		Instructions: Instructions{
			GeneralRules: []string{
				"The interview will be conducted via video call",
				"Please ensure you have a stable internet connection",
				"Find a quiet environment with minimal background noise",
				"Have your camera and microphone ready",
				"Answer only in English, answers in other languages will not be accepted",
				"Dress professionally as you would for a real interview",
			},
			InterviewFormat: []string{
				"The interview will last approximately 15 minutes",
				"It will include both technical and behavioral questions",
				"Each question is shown on screen and read aloud",
				"Your spoken answer is recorded and transcribed",
			},
			TechnicalRequirements: []string{
				"A computer with a working webcam and microphone",
				"Google Chrome or Firefox browser (latest version)",
				"Minimum internet speed of 5 Mbps",
				"A quiet, well-lit environment",
			},
			PreparationTips: []string{
				"Review your resume thoroughly",
				"Prepare examples of your past experiences",
				"Practice speaking clearly and concisely",
			},
		},
	}
}

// LoadQuestionBank reads a YAML question bank. Sections missing from the
// file keep their defaults.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	var parsed QuestionBank
	if err := utils.LoadYAML(path, &parsed); err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	bank := DefaultQuestionBank()
	if len(parsed.Questions) > 0 {
		bank.Questions = parsed.Questions
	}
	if len(parsed.Instructions.GeneralRules) > 0 {
		bank.Instructions.GeneralRules = parsed.Instructions.GeneralRules
	}
	if len(parsed.Instructions.InterviewFormat) > 0 {
		bank.Instructions.InterviewFormat = parsed.Instructions.InterviewFormat
	}
	if len(parsed.Instructions.TechnicalRequirements) > 0 {
		bank.Instructions.TechnicalRequirements = parsed.Instructions.TechnicalRequirements
	}
	if len(parsed.Instructions.PreparationTips) > 0 {
		bank.Instructions.PreparationTips = parsed.Instructions.PreparationTips
	}

	return bank, nil
}
