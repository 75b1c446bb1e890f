package questions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethanbaker/interviewer/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

const (
	// DefaultCount is the number of questions asked for when none is configured
	DefaultCount = 5
	// MaxResumeLength caps the resume text sent to the model, in bytes
	MaxResumeLength = 20000
)

// DefaultInstructions is used when no prompt file is configured
const DefaultInstructions = `You are an experienced technical interviewer preparing a screening interview.

You will receive the text of a candidate's resume. Write open-ended interview questions grounded in it:
- cover skills, experience highlights, education and projects the resume mentions
- ask about concrete decisions, trade-offs and outcomes, not yes/no facts
- keep each question to one or two sentences that can be answered aloud

Return ONLY the questions, one per line, with no numbering, headings or commentary.`

// RunFunc executes an agent against a single input
type RunFunc func(ctx context.Context, agent *agents.Agent, input string) (*agents.RunResult, error)

// AgentGenerator writes interview questions from resume text with an
// openai-agents-go agent
type AgentGenerator struct {
	agent        *agents.Agent
	instructions string
	count        int
	run          RunFunc
}

// NewAgentGenerator creates a generator asking for count questions. The
// instructions come from promptPath when it can be read.
func NewAgentGenerator(model, promptPath string, count int) *AgentGenerator {
	instructions := DefaultInstructions
	if promptPath != "" {
		instructions = utils.LoadPromptWithFallback(promptPath, DefaultInstructions)
	}
	if count <= 0 {
		count = DefaultCount
	}

	agent := agents.New("question-agent").
		WithInstructions(instructions).
		WithModel(model)

	return &AgentGenerator{
		agent:        agent,
		instructions: instructions,
		count:        count,
		run:          agents.Run,
	}
}

// WithRunner replaces the function used to execute the agent
func (g *AgentGenerator) WithRunner(run RunFunc) *AgentGenerator {
	g.run = run
	return g
}

// Agent returns the underlying openai-agents-go instance
func (g *AgentGenerator) Agent() *agents.Agent {
	return g.agent
}

// Instructions returns the system instructions the agent was built with
func (g *AgentGenerator) Instructions() string {
	return g.instructions
}

// GenerateQuestions asks the agent for questions about resumeText. At most
// the configured count is returned.
func (g *AgentGenerator) GenerateQuestions(ctx context.Context, resumeText string) ([]string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, fmt.Errorf("resume text is empty")
	}
	if len(resumeText) > MaxResumeLength {
		resumeText = strings.ToValidUTF8(resumeText[:MaxResumeLength], "")
	}

	input := fmt.Sprintf("Write %d interview questions for this resume:\n\n%s", g.count, resumeText)

	result, err := g.run(ctx, g.agent, input)
	if err != nil {
		return nil, fmt.Errorf("agent execution failed: %w", err)
	}
	if result == nil || result.FinalOutput == nil {
		return nil, fmt.Errorf("agent returned no output")
	}

	questions := ParseQuestions(fmt.Sprintf("%v", result.FinalOutput))
	if len(questions) == 0 {
		return nil, fmt.Errorf("agent returned no questions")
	}
	if len(questions) > g.count {
		questions = questions[:g.count]
	}

	return questions, nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|Q\d+[:.)])\s*`)

// ParseQuestions splits model output into one question per non-empty line,
// dropping list markers. Lines without a question mark are kept only when no
// line has one.
func ParseQuestions(output string) []string {
	var all, asked []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}

		all = append(all, line)
		if strings.HasSuffix(line, "?") {
			asked = append(asked, line)
		}
	}

	if len(asked) > 0 {
		return asked
	}
	return all
}
