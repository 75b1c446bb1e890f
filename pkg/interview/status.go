package interview

import "fmt"

// Status is the lifecycle state of an interview session
type Status string

// Event drives a status transition
type Event string

const (
	StatusScheduled  Status = "scheduled"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

const (
	EventProvisioned Event = "provisioned" // room is ready for the candidate
	EventStarted     Event = "started"     // first advance or first recorded answer
	EventCompleted   Event = "completed"   // completion coordinator finished
	EventFailed      Event = "failed"      // unrecoverable provisioning failure
)

// transitions maps each event to the statuses it may fire from and the status it lands in
var transitions = map[Event]struct {
	from []Status
	to   Status
}{
	EventProvisioned: {from: []Status{StatusScheduled}, to: StatusReady},
	EventStarted:     {from: []Status{StatusReady, StatusInProgress}, to: StatusInProgress},
	EventCompleted:   {from: []Status{StatusReady, StatusInProgress, StatusCompleted}, to: StatusCompleted},
	EventFailed:      {from: []Status{StatusScheduled, StatusReady, StatusInProgress}, to: StatusError},
}

// Transition returns the status reached by applying event to current
func Transition(current Status, event Event) (Status, error) {
	t, ok := transitions[event]
	if !ok {
		return current, fmt.Errorf("unknown event %q", event)
	}

	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}

	return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, event)
}

// SourcesOf returns the statuses an event may legally fire from. Stores use it
// to build the predicate of their conditional writes.
func SourcesOf(event Event) []Status {
	t, ok := transitions[event]
	if !ok {
		return nil
	}

	out := make([]Status, len(t.from))
	copy(out, t.from)
	return out
}

// IsTerminal reports whether no further transitions can leave s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusReady, StatusInProgress, StatusCompleted, StatusError:
		return true
	}
	return false
}
