package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)

	_, err = NewManager(&Options{Rooms: &fakeRooms{}})
	assert.Error(t, err)
}

func TestCreateProvisionsRoom(t *testing.T) {
	f := newFixture(t)

	session := f.create(t, "Q1", "Q2")

	assert.Equal(t, interview.StatusReady, session.Status)
	assert.Equal(t, []string{"Q1", "Q2"}, session.Questions)
	assert.Equal(t, "interview-"+session.ID.String(), session.RoomName)
	assert.Equal(t, "token-owner-1", session.AccessToken)
	assert.Equal(t, "Ada Lovelace", session.CandidateName)
	assert.Equal(t, 0, session.CurrentQuestionIndex)
}

func TestCreateUsesQuestionBank(t *testing.T) {
	f := newFixture(t, func(opts *Options) {
		opts.Bank = &QuestionBank{Questions: []string{"Bank question"}}
	})

	session := f.create(t)
	assert.Equal(t, []string{"Bank question"}, session.Questions)
	assert.Equal(t, interview.QuestionsBank, session.QuestionSource)

	provided := f.create(t, "Q1")
	assert.Equal(t, interview.QuestionsProvided, provided.QuestionSource)
}

func TestCreateFromResume(t *testing.T) {
	bank := &QuestionBank{Questions: []string{"Bank question"}}
	owner := interview.Owner{ID: "owner-1", Name: "Ada Lovelace"}

	tests := []struct {
		name      string
		generator *fakeGenerator
		questions []string
		source    string
	}{
		{"generated", &fakeGenerator{questions: []string{" Why Go? ", "", "How did you test it?"}}, []string{"Why Go?", "How did you test it?"}, interview.QuestionsGenerated},
		{"generator error", &fakeGenerator{err: errors.New("rate limited")}, []string{"Bank question"}, interview.QuestionsBank},
		{"nothing generated", &fakeGenerator{questions: []string{"  "}}, []string{"Bank question"}, interview.QuestionsBank},
		{"no generator", nil, []string{"Bank question"}, interview.QuestionsBank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(opts *Options) {
				opts.Bank = bank
				if tt.generator != nil {
					opts.Generator = tt.generator
				}
			})

			session, err := f.manager.CreateFromResume(context.Background(), owner, "Built an ingest service in Go.")
			require.NoError(t, err)

			assert.Equal(t, interview.StatusReady, session.Status)
			assert.Equal(t, tt.questions, session.Questions)
			assert.Equal(t, tt.source, session.QuestionSource)
			if tt.generator != nil {
				assert.Equal(t, "Built an ingest service in Go.", tt.generator.resume)
			}
		})
	}
}

func TestCreateFromResumeValidatesInput(t *testing.T) {
	generator := &fakeGenerator{questions: []string{"Why?"}}
	f := newFixture(t, func(opts *Options) { opts.Generator = generator })

	_, err := f.manager.CreateFromResume(context.Background(), interview.Owner{ID: "owner-1"}, "   ")
	assert.True(t, errors.Is(err, interview.ErrInvalidInput))

	_, err = f.manager.CreateFromResume(context.Background(), interview.Owner{}, "resume")
	assert.True(t, errors.Is(err, interview.ErrInvalidInput))

	assert.Empty(t, generator.resume)
	assert.Equal(t, 0, f.store.Count())
}

func TestCreateProvisioningFailure(t *testing.T) {
	f := newFixture(t)
	f.rooms.err = errors.New("twilio unavailable")

	session, err := f.manager.Create(context.Background(), interview.Owner{ID: "owner-1"}, []string{"Q1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interview.ErrProvisioning))

	require.NotNil(t, session)
	assert.Equal(t, interview.StatusError, session.Status)
	assert.Equal(t, "twilio unavailable", session.ErrorMessage)
	assert.Empty(t, session.RoomName)

	// error is terminal
	_, err = f.manager.Complete(context.Background(), session.ID)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), interview.Owner{}, []string{"Q1"})
	assert.True(t, errors.Is(err, interview.ErrInvalidInput))

	_, err = f.manager.Create(context.Background(), interview.Owner{ID: "o"}, []string{"Q1", "  "})
	assert.True(t, errors.Is(err, interview.ErrInvalidInput))
	assert.Equal(t, 0, f.store.Count())
}

func TestAdvanceReplayDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2", "Q3")

	for range 3 {
		adv, err := f.manager.AdvanceQuestion(ctx, session.ID, false)
		require.NoError(t, err)
		assert.Equal(t, &Advance{Index: 0, Question: "Q1", HasMore: true, Total: 3}, adv)
	}

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentQuestionIndex)
	assert.Equal(t, interview.StatusReady, stored.Status)
}

func TestAdvanceTwiceAdvancesByTwo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2", "Q3")

	adv, err := f.manager.AdvanceQuestion(ctx, session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, &Advance{Index: 1, Question: "Q2", HasMore: true, Total: 3}, adv)

	adv, err = f.manager.AdvanceQuestion(ctx, session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, &Advance{Index: 2, Question: "Q3", HasMore: true, Total: 3}, adv)

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuestionIndex)
	assert.Equal(t, interview.StatusInProgress, stored.Status)
}

func TestAdvanceIsCappedAndDoesNotComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2")

	_, err := f.manager.AdvanceQuestion(ctx, session.ID, true)
	require.NoError(t, err)

	for range 3 {
		adv, err := f.manager.AdvanceQuestion(ctx, session.ID, true)
		require.NoError(t, err)
		assert.Equal(t, &Advance{Index: 2, Question: "", HasMore: false, Total: 2}, adv)
	}

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuestionIndex)
	assert.Equal(t, interview.StatusInProgress, stored.Status)
}

func TestConcurrentAdvancesNeverSkipOrOvershoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1", "Q2", "Q3", "Q4", "Q5", "Q6")

	var wg sync.WaitGroup
	indexes := make(chan int, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adv, err := f.manager.AdvanceQuestion(ctx, session.ID, true)
			assert.NoError(t, err)
			indexes <- adv.Index
		}()
	}
	wg.Wait()
	close(indexes)

	seen := map[int]bool{}
	for idx := range indexes {
		assert.False(t, seen[idx], "index %d returned twice", idx)
		seen[idx] = true
	}

	stored, err := f.manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentQuestionIndex)
}

func TestAdvanceInvalidStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scheduled := &interview.Session{ID: uuid.New(), OwnerID: "o", Status: interview.StatusScheduled, Questions: []string{"Q1"}}
	require.NoError(t, f.store.CreateSession(ctx, scheduled))

	_, err := f.manager.AdvanceQuestion(ctx, scheduled.ID, true)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
	_, err = f.manager.AdvanceQuestion(ctx, scheduled.ID, false)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))

	_, err = f.manager.AdvanceQuestion(ctx, uuid.New(), true)
	assert.True(t, errors.Is(err, interview.ErrNotFound))

	// Completed sessions replay but do not advance
	session := f.create(t, "Q1", "Q2")
	_, err = f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = f.manager.AdvanceQuestion(ctx, session.ID, true)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))

	adv, err := f.manager.AdvanceQuestion(ctx, session.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Q1", adv.Question)
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	room, err := f.manager.IssueToken(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RoomName, room.Name)
	assert.Equal(t, "reissued-owner-1", room.AccessToken)

	_, err = f.manager.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = f.manager.IssueToken(ctx, session.ID)
	assert.True(t, errors.Is(err, interview.ErrInvalidTransition))
}

func TestRecordingsAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, "Q1")

	_, err := f.manager.RecordResponse(ctx, session.ID, 0, answerAudio, "")
	require.NoError(t, err)

	recordings, err := f.manager.Recordings(ctx, session.ID, "owner-1")
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "my answer", recordings[0].Transcription)

	_, err = f.manager.Recordings(ctx, session.ID, "someone-else")
	assert.True(t, errors.Is(err, interview.ErrNotFound))
}

func TestLoadQuestionBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("questions:\n  - Why Go?\ninstructions:\n  preparation_tips:\n    - Sleep well\n"), 0o644))

	bank, err := LoadQuestionBank(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Why Go?"}, bank.Questions)
	assert.Equal(t, []string{"Sleep well"}, bank.Instructions.PreparationTips)
	assert.Equal(t, DefaultQuestionBank().Instructions.GeneralRules, bank.Instructions.GeneralRules)

	_, err = LoadQuestionBank(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("questions: [unterminated"), 0o644))
	_, err = LoadQuestionBank(bad)
	assert.Error(t, err)
}

func TestShippedQuestionBankParses(t *testing.T) {
	bank, err := LoadQuestionBank(filepath.Join("..", "..", "config", "interview.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestionBank().Questions, bank.Questions)
}
