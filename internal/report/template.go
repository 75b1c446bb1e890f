package report

import (
	"fmt"
	"strings"

	"github.com/ethanbaker/interviewer/pkg/interview"
)

const (
	transcriptHeading = "RESPONSES"
	fallbackFooter    = "RECOMMENDATION: Manual review required\nSCORE: Pending detailed analysis"
)

// Fallback builds the deterministic report used when drafting fails
func Fallback(pairs []interview.QA) string {
	var b strings.Builder

	b.WriteString("INTERVIEW ASSESSMENT REPORT\n\n")
	b.WriteString("CANDIDATE OVERVIEW\n")
	fmt.Fprintf(&b, "The candidate participated in an AI-conducted interview with %d questions.\n", len(pairs))
	fmt.Fprintf(&b, "%d responses were recorded.\n\n", interview.Answered(pairs))
	b.WriteString("TECHNICAL ASSESSMENT\n")
	b.WriteString("Unable to perform automated analysis.\n\n")
	b.WriteString("COMMUNICATION SKILLS\n")
	b.WriteString("Manual review required for assessment.\n\n")
	b.WriteString(fallbackFooter)

	return b.String()
}

// Compose appends the verbatim Q/A transcript to an assessment, so every
// stored report pairs each question with its recorded answer
func Compose(assessment string, pairs []interview.QA) string {
	assessment = strings.TrimSpace(assessment)
	if len(pairs) == 0 {
		return assessment
	}

	return assessment + "\n\n" + transcriptHeading + "\n\n" + interview.FormatQA(pairs)
}
