package domain

import (
	"fmt"
	"time"
)

// Unanswered marks a question position the candidate has not picked an option for.
const Unanswered = -1

// Subject is a topic area with its own question bank.
type Subject struct {
	ID        string `json:"id" yaml:"id" validate:"required"`
	Mandatory bool   `json:"mandatory" yaml:"mandatory"`
}

// Question is an immutable multiple-choice item.
type Question struct {
	Prompt       string   `json:"prompt"`
	Passage      string   `json:"passage,omitempty"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// State is the lifecycle state of an exam.
type State int

const (
	StateSetup State = iota
	StateLoading
	StateInProgress
	StateSubmitted
	StateReviewing
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateSubmitted:
		return "submitted"
	case StateReviewing:
		return "reviewing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateSetup; candidate <= StateReviewing; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Outcome classifies a question after submission.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
)

// Remaining is the countdown split into clock fields.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// RemainingFrom converts a duration using integer division; negative input clamps to zero.
func RemainingFrom(d time.Duration) Remaining {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return Remaining{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

func (r Remaining) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}

// SubjectScore is the per-subject part of a result.
type SubjectScore struct {
	SubjectID string `json:"subjectId"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

// ScoreResult is computed once at submission and never mutated.
type ScoreResult struct {
	PerSubject []SubjectScore `json:"perSubject"`
	Correct    int            `json:"correct"`
	Total      int            `json:"total"`
	Aggregate  int            `json:"aggregate"`
	MaxScale   int            `json:"maxScale"`
	Forced     bool           `json:"forced"`
}

// QuestionView is what a renderer shows for the current question.
// Key and Outcome are only populated once the exam is submitted.
type QuestionView struct {
	SubjectID string   `json:"subjectId"`
	Position  int      `json:"position"`
	Total     int      `json:"total"`
	Prompt    string   `json:"prompt"`
	Passage   string   `json:"passage,omitempty"`
	Options   []string `json:"options"`
	Selected  int      `json:"selected"`
	Flagged   bool     `json:"flagged"`
	Key       *int     `json:"key,omitempty"`
	Outcome   Outcome  `json:"outcome,omitempty"`
	// Explanation is only shown in review mode.
	Explanation string `json:"explanation,omitempty"`
}

// SubjectProgress drives the question palette.
type SubjectProgress struct {
	SubjectID string `json:"subjectId"`
	Total     int    `json:"total"`
	Answered  int    `json:"answered"`
	Flagged   int    `json:"flagged"`
}

// Snapshot is a read-only copy of session state pushed to subscribers.
type Snapshot struct {
	SessionID string            `json:"sessionId"`
	State     State             `json:"state"`
	Subjects  []SubjectProgress `json:"subjects"`
	Remaining Remaining         `json:"remaining"`
	Current   QuestionView      `json:"current"`
	Result    *ScoreResult      `json:"result,omitempty"`
}

// ReviewItem is one row of the corrections list.
type ReviewItem struct {
	SubjectID     string  `json:"subjectId"`
	Position      int     `json:"position"`
	Prompt        string  `json:"prompt"`
	CorrectAnswer string  `json:"correctAnswer"`
	YourAnswer    string  `json:"yourAnswer"`
	Outcome       Outcome `json:"outcome"`
	Flagged       bool    `json:"flagged"`
}

// HistoryEntry is an append-only score record.
type HistoryEntry struct {
	ID           string    `json:"id"`
	SubjectLabel string    `json:"sub"`
	Value        int       `json:"val"`
	Timestamp    time.Time `json:"date"`
}

// Leaderboard is the history view, most recent first.
type Leaderboard struct {
	Entries []HistoryEntry `json:"entries"`
	Average float64        `json:"average"`
}
