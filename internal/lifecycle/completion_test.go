package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethanbaker/interviewer/internal/report"
	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	session_store "github.com/ethanbaker/interviewer/internal/stores/session"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCompleteSendsOnce(t *testing.T) {
	for _, n := range []int{1, 2, 8, 32} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			f := newFixture(t)
			f.drafter.delay = 20 * time.Millisecond
			ctx := context.Background()
			session := f.create(t, "Q1", "Q2")

			_, err := f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
			require.NoError(t, err)

			results := make([]*Result, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := f.manager.Complete(ctx, session.ID)
					assert.NoError(t, err)
					results[i] = res
				}()
			}
			wg.Wait()

			assert.Len(t, f.sender.sent(), 1)
			assert.Equal(t, 1, f.ledger.Count())
			assert.Equal(t, int32(1), f.drafter.calls.Load())

			accepted := 0
			for _, res := range results {
				require.NotNil(t, res)
				assert.Equal(t, results[0].Report, res.Report)
				assert.NotEmpty(t, res.Report)
				assert.True(t, res.Delivered)
				assert.False(t, res.InProgress)
				if res.Outcome == OutcomeAccepted {
					accepted++
				}
			}
			assert.Equal(t, 1, accepted)

			stored, err := f.manager.GetSession(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, interview.StatusCompleted, stored.Status)
			assert.Equal(t, results[0].Report, stored.ReportArtifact)
			assert.False(t, stored.Locked())
		})
	}
}

func TestCompleteAfterCompletionIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	first, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, first.Outcome)

	second, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, second.Outcome)
	assert.Equal(t, first.Report, second.Report)

	assert.Len(t, f.sender.sent(), 1)
	assert.Equal(t, int32(1), f.drafter.calls.Load())
}

func TestTwoQuestionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2")

	f.speech.text = "answer one"
	_, err := f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
	require.NoError(t, err)

	adv, err := f.manager.AdvanceQuestion(ctx, session.ID, true)
	require.NoError(t, err)
	assert.True(t, adv.HasMore)
	assert.Equal(t, "Q2", adv.Question)

	f.speech.text = "answer two"
	_, err = f.manager.RecordResponse(ctx, session.ID, 1, answerAudio, "")
	require.NoError(t, err)

	adv, err = f.manager.AdvanceQuestion(ctx, session.ID, true)
	require.NoError(t, err)
	assert.False(t, adv.HasMore)

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.manager.Complete(ctx, session.ID)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, results[0].Report, results[1].Report)
	assert.Equal(t, 1, f.ledger.Count())

	// Every question is paired with its stored transcription verbatim
	assert.Contains(t, results[0].Report, "Q1: Q1\nA1: answer one")
	assert.Contains(t, results[0].Report, "Q2: Q2\nA2: answer two")
	assert.Equal(t, report.SourceDrafted, results[0].ReportSource)
	assert.Equal(t, 2, results[0].TotalResponses)
}

func TestCompleteWithZeroResponses(t *testing.T) {
	f := newFixture(t, func(opts *Options) { opts.Drafter = nil })
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2")

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, interview.StatusCompleted, res.Status)
	assert.Equal(t, report.SourceFallback, res.ReportSource)
	assert.Contains(t, res.Report, "A1: "+interview.NoResponseRecorded)
	assert.Contains(t, res.Report, "A2: "+interview.NoResponseRecorded)
	assert.Equal(t, 2, strings.Count(res.Report, interview.NoResponseRecorded))
}

func TestCompleteDraftFailureUsesFallback(t *testing.T) {
	f := newFixture(t)
	f.drafter.err = errors.New("model overloaded")
	ctx := context.Background()
	session := f.create(t, "Q1")

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, interview.StatusCompleted, res.Status)
	assert.Equal(t, report.SourceFallback, res.ReportSource)
	assert.True(t, strings.HasPrefix(res.Report, "INTERVIEW ASSESSMENT REPORT"))
	assert.True(t, res.Delivered)
}

func TestCompleteRenderFailureSendsInline(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("font missing")
	ctx := context.Background()
	session := f.create(t, "Q1")

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, res.Delivered)

	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].PDF)
	assert.Contains(t, sent[0].Body, res.Report)
	assert.Equal(t, "hiring@example.com", sent[0].To)
	assert.Equal(t, "Ada Lovelace", sent[0].CandidateName)
}

func TestEmailFailureLeavesReportForRedelivery(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp timeout")
	ctx := context.Background()
	session := f.create(t, "Q1")

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusCompleted, res.Status)
	assert.False(t, res.Delivered)
	assert.Equal(t, 0, f.ledger.Count())

	f.sender.err = nil
	again, err := f.manager.Redeliver(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, again.Outcome)
	assert.True(t, again.Delivered)
	assert.Equal(t, res.Report, again.Report)

	// The report is never regenerated once stored
	assert.Equal(t, int32(1), f.drafter.calls.Load())
	assert.Len(t, f.sender.sent(), 1)

	noop, err := f.manager.Redeliver(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, noop.Outcome)
	assert.Len(t, f.sender.sent(), 1)
}

func TestRedeliverRequiresCompletedSession(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, "Q1")

	_, err := f.manager.Redeliver(context.Background(), session.ID)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
}

func TestLedgerSuppressesDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	// A delivery that happened before a crash, before the store recorded it
	require.NoError(t, f.ledger.Record(ctx, delivery_store.Entry{
		CandidateID: "owner-1",
		Recipient:   "hiring@example.com",
		SessionID:   session.ID,
		DeliveredAt: time.Now().UTC().Add(-10 * time.Minute),
	}))

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Empty(t, f.sender.sent())
	assert.Equal(t, 1, f.ledger.Count())
}

func TestLedgerOutsideWindowDoesNotSuppress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	require.NoError(t, f.ledger.Record(ctx, delivery_store.Entry{
		CandidateID: "owner-1",
		Recipient:   "hiring@example.com",
		SessionID:   session.ID,
		DeliveredAt: time.Now().UTC().Add(-2 * time.Hour),
	}))

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Len(t, f.sender.sent(), 1)
}

func TestLedgerDoesNotSuppressOtherSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "Q1")
	_, err := f.manager.Complete(ctx, first.ID)
	require.NoError(t, err)

	// Same owner and recipient inside the window
	second := f.create(t, "Q1")
	res, err := f.manager.Complete(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, res.Delivered)

	sent := f.sender.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, 2, f.ledger.Count())
}

func TestLedgerFailureSkipsSend(t *testing.T) {
	f := newFixture(t, func(opts *Options) { opts.Ledger = failingLedger{} })
	ctx := context.Background()
	session := f.create(t, "Q1")

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusCompleted, res.Status)
	assert.False(t, res.Delivered)
	assert.Empty(t, f.sender.sent())
}

func TestCompleteWithoutSender(t *testing.T) {
	f := newFixture(t, func(opts *Options) { opts.Sender = nil })
	res, err := f.manager.Complete(context.Background(), f.create(t, "Q1").ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusCompleted, res.Status)
	assert.False(t, res.Delivered)
}

func TestCompleteRejectsInvalidSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Complete(ctx, uuid.New())
	assert.True(t, errors.Is(err, interview.ErrNotFound))

	scheduled := &interview.Session{ID: uuid.New(), OwnerID: "o", Status: interview.StatusScheduled, Questions: []string{"Q1"}}
	require.NoError(t, f.store.CreateSession(ctx, scheduled))
	_, err = f.manager.Complete(ctx, scheduled.ID)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
}

func TestObserverGivesUpWhileClaimIsHeld(t *testing.T) {
	f := newFixture(t, func(opts *Options) { opts.CompletionWait = 30 * time.Millisecond })
	ctx := context.Background()
	session := f.create(t, "Q1")

	now := time.Now().UTC()
	claimed, err := f.store.ClaimCompletion(ctx, session.ID, "other-worker", now, now.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, res.Outcome)
	assert.True(t, res.InProgress)
	assert.Empty(t, f.sender.sent())
	assert.Equal(t, int32(0), f.drafter.calls.Load())
}

func TestStaleClaimIsTakenOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	started := time.Now().UTC().Add(-time.Hour)
	claimed, err := f.store.ClaimCompletion(ctx, session.ID, "crashed-worker", started, started.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	res, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.True(t, res.Delivered)
}

// finishFailingStore fails the guarded finish write
type finishFailingStore struct {
	*session_store.InMemoryStore
}

func (s finishFailingStore) FinishCompletion(ctx context.Context, sessionID uuid.UUID, token string, completion session_store.Completion) (bool, error) {
	return false, errors.New("deadlock detected")
}

func TestStoreFailureAfterClaimReleasesLock(t *testing.T) {
	mem := session_store.NewInMemoryStore()
	f := newFixture(t, func(opts *Options) { opts.Store = finishFailingStore{mem} })
	ctx := context.Background()
	session := f.create(t, "Q1")

	_, err := f.manager.Complete(ctx, session.ID)
	require.Error(t, err)

	stored, err := mem.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, stored.Locked())
	assert.NotEqual(t, interview.StatusCompleted, stored.Status)
}

func TestCallerDeadlineDoesNotDegradeReport(t *testing.T) {
	f := newFixture(t)
	f.drafter.delay = 50 * time.Millisecond
	session := f.create(t, "Q1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	first, err := f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, first.Outcome)
	assert.True(t, first.InProgress)

	// A retry waits for the holder that kept running in the background
	again, err := f.manager.Complete(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, again.Outcome)
	assert.False(t, again.InProgress)
	assert.Equal(t, report.SourceDrafted, again.ReportSource)
	assert.Contains(t, again.Report, "Strong communicator.")
	assert.True(t, again.Delivered)
	assert.Len(t, f.sender.sent(), 1)
	assert.Equal(t, int32(1), f.drafter.calls.Load())
}
