package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// Report sources recorded next to the artifact
const (
	SourceDrafted  = "drafted"
	SourceFallback = "fallback"
)

// DefaultInstructions is used when no prompt file is configured
const DefaultInstructions = `You are an expert interview assessor. Analyze the interview responses and provide a comprehensive evaluation report.

Structure your response as follows:
1. CANDIDATE OVERVIEW
2. STRENGTHS (list key strengths with examples)
3. AREAS FOR IMPROVEMENT (list weaknesses with specific feedback)
4. TECHNICAL SKILLS ASSESSMENT
5. COMMUNICATION SKILLS
6. OVERALL RECOMMENDATION (Recommend/Consider/Not Recommend)
7. SCORE (out of 10)

Be professional, constructive, and specific in your feedback. If responses are missing or incomplete, note this and provide guidance on what additional information would be helpful.`

// RunFunc executes an agent against a single input
type RunFunc func(ctx context.Context, agent *agents.Agent, input string) (*agents.RunResult, error)

// AgentDrafter drafts assessment reports with an openai-agents-go agent
type AgentDrafter struct {
	agent        *agents.Agent
	instructions string
	run          RunFunc
}

// NewAgentDrafter creates a drafter. The instructions come from promptPath
// when it can be read and fall back to DefaultInstructions otherwise.
func NewAgentDrafter(model, promptPath string) *AgentDrafter {
	instructions := DefaultInstructions
	if promptPath != "" {
		instructions = utils.LoadPromptWithFallback(promptPath, DefaultInstructions)
	}

	agent := agents.New("report-agent").
		WithInstructions(instructions).
		WithModel(model)

	return &AgentDrafter{
		agent:        agent,
		instructions: instructions,
		run:          agents.Run,
	}
}

// WithRunner replaces the function used to execute the agent
func (d *AgentDrafter) WithRunner(run RunFunc) *AgentDrafter {
	d.run = run
	return d
}

// Agent returns the underlying openai-agents-go instance
func (d *AgentDrafter) Agent() *agents.Agent {
	return d.agent
}

// Instructions returns the system instructions the agent was built with
func (d *AgentDrafter) Instructions() string {
	return d.instructions
}

// DraftReport asks the agent for an assessment of the Q/A pairs
func (d *AgentDrafter) DraftReport(ctx context.Context, pairs []interview.QA) (string, error) {
	input := "Please analyze this interview and provide a detailed assessment report:\n\n" + interview.FormatQA(pairs)

	result, err := d.run(ctx, d.agent, input)
	if err != nil {
		return "", fmt.Errorf("agent execution failed: %w", err)
	}
	if result == nil || result.FinalOutput == nil {
		return "", fmt.Errorf("agent returned no output")
	}

	text := strings.TrimSpace(fmt.Sprintf("%v", result.FinalOutput))
	if text == "" {
		return "", fmt.Errorf("agent returned an empty report")
	}

	return text, nil
}
