package interview

import (
	"fmt"
	"strings"
)

// NoResponseRecorded stands in for the answer to a question nobody answered
const NoResponseRecorded = "No response recorded"

// QA pairs a question with the answer stored for it
type QA struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
}

// Transcript returns one QA per question, in question order. Questions without
// a stored response are paired with NoResponseRecorded.
func (s *Session) Transcript() []QA {
	out := make([]QA, 0, len(s.Questions))
	for i, q := range s.Questions {
		qa := QA{Index: i, Question: q, Answer: NoResponseRecorded}
		if r := s.ResponseFor(i); r != nil {
			qa.Answer = r.Transcription
			qa.Answered = true
		}
		out = append(out, qa)
	}
	return out
}

// FormatQA renders pairs as "Qn: question\nAn: answer" blocks
func FormatQA(pairs []QA) string {
	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q%d: %s\nA%d: %s", p.Index+1, p.Question, p.Index+1, p.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// Answered counts the pairs that carry a stored response
func Answered(pairs []QA) int {
	n := 0
	for _, p := range pairs {
		if p.Answered {
			n++
		}
	}
	return n
}
