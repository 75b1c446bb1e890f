package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Metadata describes the interview a rendered report belongs to
type Metadata struct {
	CandidateName  string
	CandidateEmail string
	SessionID      string
	CompletedAt    time.Time
}

// Title returns the document title for a candidate
func (m Metadata) Title() string {
	return "Interview Assessment Report - " + m.name()
}

func (m Metadata) name() string {
	if m.CandidateName == "" {
		return "Candidate"
	}
	return m.CandidateName
}

// PDFRenderer renders report text as a Letter-sized PDF
type PDFRenderer struct{}

// NewPDFRenderer creates a renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// RenderPDF lays out the report. Short upper-case lines become headings and
// everything else is body text.
func (r *PDFRenderer) RenderPDF(text string, meta Metadata) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("report text cannot be empty")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(meta.Title(), true)
	pdf.SetAuthor("Interviewer", true)
	if !meta.CompletedAt.IsZero() {
		pdf.SetCreationDate(meta.CompletedAt)
	}
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(meta.Title()), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	if meta.CandidateEmail != "" {
		pdf.MultiCell(0, 5, tr("Email: "+meta.CandidateEmail), "", "L", false)
	}
	if meta.SessionID != "" {
		pdf.MultiCell(0, 5, tr("Session: "+meta.SessionID), "", "L", false)
	}
	if !meta.CompletedAt.IsZero() {
		pdf.MultiCell(0, 5, tr("Completed: "+meta.CompletedAt.Format("2006-01-02 15:04 MST")), "", "L", false)
	}
	pdf.Ln(6)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isHeading(line) {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 7, tr(line), "", "L", false)
			pdf.Ln(1)
			continue
		}

		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 6, tr(line), "", "J", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return buf.Bytes(), nil
}

// isHeading reports whether a line is a short all-caps section title
func isHeading(line string) bool {
	if len(line) >= 50 {
		return false
	}

	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}
