package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when an operation is illegal for the session's status
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidInput is returned for malformed caller input
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyAudio is returned when a response is submitted without audio
	ErrEmptyAudio = fmt.Errorf("%w: audio buffer is empty", ErrInvalidInput)

	// ErrInvalidQuestionIndex is returned when a response targets a question that does not exist
	ErrInvalidQuestionIndex = fmt.Errorf("%w: question index out of range", ErrInvalidInput)

	// ErrProvisioning is returned when the interview room could not be created
	ErrProvisioning = errors.New("room provisioning failed")
)
