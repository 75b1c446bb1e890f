package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethanbaker/interviewer/internal/delivery"
	"github.com/ethanbaker/interviewer/internal/report"
	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	session_store "github.com/ethanbaker/interviewer/internal/stores/session"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
)

// Outcome distinguishes the call that ran completion from those that observed it
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeAlreadyCompleted Outcome = "already_completed"
)

// Result is the recorded state of a completion attempt
type Result struct {
	SessionID      uuid.UUID        `json:"session_id"`
	Outcome        Outcome          `json:"outcome"`
	Status         interview.Status `json:"status"`
	Report         string           `json:"report"`
	ReportSource   string           `json:"report_source"`
	Delivered      bool             `json:"report_delivered"`
	InProgress     bool             `json:"in_progress"` // another caller still held the claim when this one gave up waiting
	TotalQuestions int              `json:"total_questions"`
	TotalResponses int              `json:"total_responses"`
}

// Complete finishes the session: one report is stored and at most one email
// is sent no matter how many callers race. Callers that lose the claim wait
// for the holder and return its recorded result.
func (m *Manager) Complete(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := interview.Transition(session.Status, interview.EventCompleted); err != nil {
		return nil, err
	}

	return m.claimAndFinish(ctx, sessionID)
}

// Redeliver retries the email of a completed session whose earlier delivery failed
func (m *Manager) Redeliver(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != interview.StatusCompleted {
		return nil, fmt.Errorf("%w: only completed sessions can be redelivered", interview.ErrInvalidTransition)
	}
	if session.ReportDelivered {
		return resultFor(session, OutcomeAlreadyCompleted, false), nil
	}

	return m.claimAndFinish(ctx, sessionID)
}

// claimAndFinish runs the claim protocol. The holder's work runs on a context
// detached from the caller and bounded by the lease, so a caller deadline
// cannot degrade the stored report. A caller that stops waiting gets the
// current state with InProgress set.
func (m *Manager) claimAndFinish(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	token := uuid.NewString()
	now := m.now()

	claimed, err := m.store.ClaimCompletion(ctx, sessionID, token, now, now.Add(-m.lease))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return m.observe(ctx, sessionID)
	}

	done := make(chan finishOutcome, 1)
	go func() {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.lease)
		defer cancel()

		result, err := m.finish(work, sessionID, token)
		if err != nil {
			if releaseErr := m.store.ReleaseCompletion(context.WithoutCancel(ctx), sessionID, token); releaseErr != nil {
				log.Printf("[LIFECYCLE]: failed to release completion claim for %s: %v\n", sessionID, releaseErr)
			}
		}
		done <- finishOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		log.Printf("[LIFECYCLE]: caller stopped waiting for completion of %s, finishing in background\n", sessionID)

		session, err := m.store.GetSession(context.WithoutCancel(ctx), sessionID)
		if err != nil {
			return nil, err
		}
		return resultFor(session, OutcomeAccepted, true), nil
	}
}

type finishOutcome struct {
	result *Result
	err    error
}

// finish does the work of the claim holder
func (m *Manager) finish(ctx context.Context, sessionID uuid.UUID, token string) (*Result, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	text, source := session.ReportArtifact, session.ReportSource
	if text == "" {
		text, source = m.draft(ctx, session.Transcript())
	}

	delivered := session.ReportDelivered
	if !delivered {
		delivered = m.deliver(ctx, session, text)
	}

	finished, err := m.store.FinishCompletion(ctx, sessionID, token, session_store.Completion{
		Report:      text,
		Source:      source,
		Delivered:   delivered,
		CompletedAt: m.now(),
	})
	if err != nil {
		return nil, err
	}
	if !finished {
		log.Printf("[LIFECYCLE]: completion claim for %s was superseded\n", sessionID)
		return m.observe(ctx, sessionID)
	}

	final, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log.Printf("[LIFECYCLE]: session %s completed (report=%s, delivered=%t)\n", sessionID, final.ReportSource, final.ReportDelivered)
	return resultFor(final, OutcomeAccepted, false), nil
}

// observe polls the store until no claim is held or the wait budget runs out.
// It performs no work of its own.
func (m *Manager) observe(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	deadline := time.Now().Add(m.wait)

	timer := time.NewTimer(m.poll)
	defer timer.Stop()

	for {
		session, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if !session.Locked() {
			return resultFor(session, OutcomeAlreadyCompleted, false), nil
		}
		if !time.Now().Before(deadline) {
			return resultFor(session, OutcomeAlreadyCompleted, true), nil
		}

		select {
		case <-ctx.Done():
			return resultFor(session, OutcomeAlreadyCompleted, true), nil
		case <-timer.C:
			timer.Reset(m.poll)
		}
	}
}

// draft produces the report text, falling back to the template on failure.
// The verbatim Q/A transcript is always appended.
func (m *Manager) draft(ctx context.Context, pairs []interview.QA) (string, string) {
	if m.drafter != nil {
		assessment, err := m.drafter.DraftReport(ctx, pairs)
		if err == nil {
			return report.Compose(assessment, pairs), report.SourceDrafted
		}
		log.Printf("[LIFECYCLE]: report drafting failed, using fallback: %v\n", err)
	}

	return report.Compose(report.Fallback(pairs), pairs), report.SourceFallback
}

// deliver sends the report unless the ledger shows a recent delivery. It
// returns whether the report is known to have been delivered.
func (m *Manager) deliver(ctx context.Context, session *interview.Session, text string) bool {
	if m.sender == nil || m.recipient == "" {
		log.Printf("[LIFECYCLE]: no report sender configured, skipping delivery for %s\n", session.ID)
		return false
	}

	now := m.now()
	key := delivery_store.Key{CandidateID: session.OwnerID, Recipient: m.recipient, SessionID: session.ID}
	seen, err := m.ledger.DeliveredSince(ctx, key, now.Add(-m.window))
	if err != nil {
		log.Printf("[LIFECYCLE]: delivery ledger unavailable, skipping send for %s: %v\n", session.ID, err)
		return false
	}
	if seen {
		log.Printf("[LIFECYCLE]: report for %s already delivered to %s within window\n", session.ID, m.recipient)
		return true
	}

	var pdf []byte
	if m.renderer != nil {
		pdf, err = m.renderer.RenderPDF(text, report.Metadata{
			CandidateName:  session.CandidateName,
			CandidateEmail: session.CandidateEmail,
			SessionID:      session.ID.String(),
			CompletedAt:    now,
		})
		if err != nil {
			log.Printf("[LIFECYCLE]: pdf rendering failed, sending report inline: %v\n", err)
			pdf = nil
		}
	}

	body := delivery.ReportBody(session.CandidateName)
	if len(pdf) == 0 {
		body = delivery.InlineBody(session.CandidateName, text)
	}

	sent, err := m.sender.SendReport(ctx, delivery.Email{
		To:            m.recipient,
		CandidateName: session.CandidateName,
		Body:          body,
		PDF:           pdf,
	})
	if err != nil || !sent {
		return false
	}

	if err := m.ledger.Record(ctx, delivery_store.Entry{
		CandidateID: key.CandidateID,
		Recipient:   key.Recipient,
		SessionID:   key.SessionID,
		DeliveredAt: now,
	}); err != nil {
		log.Printf("[LIFECYCLE]: failed to record delivery for %s: %v\n", session.ID, err)
	}

	return true
}

// resultFor summarizes a stored session
func resultFor(session *interview.Session, outcome Outcome, inProgress bool) *Result {
	return &Result{
		SessionID:      session.ID,
		Outcome:        outcome,
		Status:         session.Status,
		Report:         session.ReportArtifact,
		ReportSource:   session.ReportSource,
		Delivered:      session.ReportDelivered,
		InProgress:     inProgress,
		TotalQuestions: len(session.Questions),
		TotalResponses: len(session.Responses),
	}
}
