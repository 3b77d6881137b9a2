package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSubject is returned when a subject id is not in the catalog or selection.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrMandatorySubject is returned when a caller tries to deselect the mandatory subject.
	ErrMandatorySubject = errors.New("mandatory subject cannot be removed")
	// ErrSelectionFull is returned when adding a subject would exceed the required count.
	ErrSelectionFull = errors.New("subject selection is full")
	// ErrSelectionIncomplete is returned when an exam is started before enough subjects are picked.
	ErrSelectionIncomplete = errors.New("subject selection incomplete")

	// ErrBankNotFound indicates no question bank exists for a subject.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrEmptyQuestionSet indicates a subject loaded without any questions.
	ErrEmptyQuestionSet = errors.New("question bank is empty")

	// ErrInvalidNavigation indicates a move or jump outside the current subject.
	ErrInvalidNavigation = errors.New("question index out of range")
	// ErrInvalidOption indicates an option index outside the current question.
	ErrInvalidOption = errors.New("option index out of range")

	// ErrScoringInvariant indicates a subject with zero questions reached the scorer.
	ErrScoringInvariant = errors.New("cannot score subject without questions")

	ErrNoSession            = errors.New("no exam session")
	ErrSessionBusy          = errors.New("exam session is loading")
	ErrNotInProgress        = errors.New("exam is not in progress")
	ErrNotSubmitted         = errors.New("exam has not been submitted")
	ErrAlreadySubmitted     = errors.New("exam already submitted")
	ErrConfirmationRequired = errors.New("submission requires confirmation")
)

// LoadError reports which subject failed to load.
type LoadError struct {
	SubjectID string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s questions: %v", e.SubjectID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsSelectionError reports whether err is a recoverable selection constraint violation.
func IsSelectionError(err error) bool {
	return errors.Is(err, ErrUnknownSubject) ||
		errors.Is(err, ErrMandatorySubject) ||
		errors.Is(err, ErrSelectionFull) ||
		errors.Is(err, ErrSelectionIncomplete)
}
