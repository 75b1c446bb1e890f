package delivery

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

// Email is one assessment report addressed to a hiring contact
type Email struct {
	To            string
	CandidateName string
	Body          string
	PDF           []byte // optional attachment
}

// Subject returns the subject line for the report email
func (e Email) Subject() string {
	return "Interview Assessment Report - " + e.candidate()
}

// AttachmentName returns the file name used for the PDF attachment
func (e Email) AttachmentName() string {
	name := strings.Join(strings.Fields(e.candidate()), "_")
	return name + "_Interview_Report.pdf"
}

func (e Email) candidate() string {
	if e.CandidateName == "" {
		return "Candidate"
	}
	return e.CandidateName
}

// SMTPOptions configures the SMTP sender
type SMTPOptions struct {
	Host     string
	Port     int // 465 uses implicit TLS
	Username string
	Password string
	From     string
}

// SMTPSender delivers report emails over SMTP
type SMTPSender struct {
	from string
	send func(m *gomail.Message) error
}

// NewSMTPSender creates a sender from the given options
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set in config or environment")
	}
	if opts.Port == 0 {
		opts.Port = 465
	}

	from := opts.From
	if from == "" {
		from = opts.Username
	}
	if from == "" {
		return nil, fmt.Errorf("a sender address must be provided")
	}

	dialer := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	return &SMTPSender{
		from: from,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}, nil
}

// NewSenderFunc creates a sender over any gomail.Sender
func NewSenderFunc(from string, sender gomail.Sender) *SMTPSender {
	return &SMTPSender{
		from: from,
		send: func(m *gomail.Message) error { return gomail.Send(sender, m) },
	}
}

// SendReport delivers the email. The boolean is true only when the SMTP
// transaction completed.
func (s *SMTPSender) SendReport(ctx context.Context, email Email) (bool, error) {
	if email.To == "" {
		return false, fmt.Errorf("recipient cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := s.send(BuildMessage(s.from, email)); err != nil {
		log.Printf("[DELIVERY]: failed to send report to %s: %v\n", email.To, err)
		return false, fmt.Errorf("failed to send report: %w", err)
	}

	log.Printf("[DELIVERY]: report for %s sent to %s\n", email.candidate(), email.To)
	return true, nil
}

// BuildMessage renders the report email as a MIME message
func BuildMessage(from string, email Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject())
	m.SetBody("text/plain", email.Body)

	if len(email.PDF) > 0 {
		pdf := email.PDF
		m.Attach(email.AttachmentName(),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}),
		)
	}

	return m
}

// ReportBody is the plain-text body sent with an attached report
func ReportBody(candidateName string) string {
	if candidateName == "" {
		candidateName = "Candidate"
	}

	return fmt.Sprintf(`Dear Hiring Manager,

Please find attached the interview assessment report for %s.

The report includes:
- Candidate overview
- Strengths and areas for improvement
- Technical and communication skills assessment
- Overall recommendation and scoring

This report was generated automatically from the candidate's interview responses.
`, candidateName)
}

// InlineBody is the body used when no PDF could be attached
func InlineBody(candidateName, report string) string {
	if candidateName == "" {
		candidateName = "Candidate"
	}

	return fmt.Sprintf("Dear Hiring Manager,\n\nThe PDF rendition of the interview assessment report for %s could not be generated. The full report follows.\n\n%s\n", candidateName, report)
}
