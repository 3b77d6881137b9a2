package app

import (
	"errors"
	"fmt"

	"cbt-exam-runner/internal/domain"
)

// CommandKind names a user action on the live exam.
type CommandKind string

const (
	CmdSelect CommandKind = "select"
	CmdNext   CommandKind = "next"
	CmdPrev   CommandKind = "prev"
	CmdJump   CommandKind = "jump"
	CmdSwitch CommandKind = "switch"
	CmdFlag   CommandKind = "flag"
	CmdSubmit CommandKind = "submit"
	CmdReview CommandKind = "review"
)

// Command is one user action. Only the field relevant to Kind is read.
type Command struct {
	Kind      CommandKind `json:"kind"`
	Option    int         `json:"option,omitempty"`
	Position  int         `json:"position,omitempty"`
	SubjectID string      `json:"subjectId,omitempty"`
	Confirmed bool        `json:"confirmed,omitempty"`
}

// Dispatch applies cmd to the live session. Actions that do not fit the
// current state are rejected without mutation.
func (s *ExamService) Dispatch(cmd Command) error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	switch cmd.Kind {
	case CmdSelect:
		return sess.SelectOption(cmd.Option)
	case CmdNext:
		return sess.Move(1)
	case CmdPrev:
		return sess.Move(-1)
	case CmdJump:
		return sess.Jump(cmd.Position)
	case CmdSwitch:
		return sess.SwitchSubject(cmd.SubjectID)
	case CmdFlag:
		_, err := sess.ToggleFlag()
		return err
	case CmdSubmit:
		_, err := s.Submit(cmd.Confirmed)
		return err
	case CmdReview:
		return sess.Review()
	}
	return fmt.Errorf("unsupported command %q", cmd.Kind)
}

// IsRejection reports errors that leave the exam untouched and only need a
// message, never a retry or abort.
func IsRejection(err error) bool {
	return domain.IsSelectionError(err) ||
		errors.Is(err, domain.ErrInvalidNavigation) ||
		errors.Is(err, domain.ErrInvalidOption) ||
		errors.Is(err, domain.ErrNotInProgress) ||
		errors.Is(err, domain.ErrNotSubmitted) ||
		errors.Is(err, domain.ErrAlreadySubmitted) ||
		errors.Is(err, domain.ErrConfirmationRequired)
}
