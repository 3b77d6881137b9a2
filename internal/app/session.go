package app

import (
	"fmt"
	"sync"
	"time"

	"cbt-exam-runner/internal/domain"
)

// SessionConfig carries everything needed to open an exam.
type SessionConfig struct {
	ID       string
	Subjects []domain.Subject
	Sets     map[string][]domain.Question
	Duration time.Duration
	MaxScale int
	Now      func() time.Time
}

// sessionHooks lets the owning service observe transitions without the
// session knowing about timers, stores or subscribers.
type sessionHooks struct {
	stopTimer func()
	submitted func(domain.ScoreResult)
	changed   func(domain.Snapshot)
}

// Session is the single live exam. Every mutation, including timer ticks,
// runs under mu so a tick and a submit cannot interleave.
type Session struct {
	id       string
	subjects []domain.Subject
	sets     map[string][]domain.Question
	maxScale int
	now      func() time.Time
	hooks    sessionHooks

	mu          sync.Mutex
	state       domain.State
	answers     map[string][]int
	flags       map[string][]bool
	current     string
	index       int
	remaining   time.Duration
	result      *domain.ScoreResult
	startedAt   time.Time
	submittedAt time.Time
}

// NewSession opens a session in the in-progress state. The timer is not started here.
func NewSession(cfg SessionConfig) (*Session, error) {
	return newSession(cfg, sessionHooks{})
}

func newSession(cfg SessionConfig, hooks sessionHooks) (*Session, error) {
	if len(cfg.Subjects) == 0 {
		return nil, domain.ErrSelectionIncomplete
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Session{
		id:        cfg.ID,
		subjects:  make([]domain.Subject, len(cfg.Subjects)),
		sets:      make(map[string][]domain.Question, len(cfg.Subjects)),
		maxScale:  cfg.MaxScale,
		now:       cfg.Now,
		hooks:     hooks,
		state:     domain.StateInProgress,
		answers:   make(map[string][]int, len(cfg.Subjects)),
		flags:     make(map[string][]bool, len(cfg.Subjects)),
		remaining: cfg.Duration,
		startedAt: cfg.Now(),
	}
	copy(s.subjects, cfg.Subjects)

	for _, sub := range cfg.Subjects {
		questions := cfg.Sets[sub.ID]
		if len(questions) == 0 {
			return nil, &domain.LoadError{SubjectID: sub.ID, Err: domain.ErrEmptyQuestionSet}
		}
		s.sets[sub.ID] = questions
		answers := make([]int, len(questions))
		for i := range answers {
			answers[i] = domain.Unanswered
		}
		s.answers[sub.ID] = answers
		s.flags[sub.ID] = make([]bool, len(questions))
	}
	s.current = s.homeSubject()
	return s, nil
}

func (s *Session) homeSubject() string {
	for _, sub := range s.subjects {
		if sub.Mandatory {
			return sub.ID
		}
	}
	return s.subjects[0].ID
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Subjects() []domain.Subject {
	out := make([]domain.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

func (s *Session) StartedAt() time.Time { return s.startedAt }

// SubmittedAt is zero until the exam is submitted.
func (s *Session) SubmittedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submittedAt
}

func (s *Session) Remaining() domain.Remaining {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.RemainingFrom(s.remaining)
}

// Answers returns a copy of the recorded answers for a subject.
func (s *Session) Answers(subjectID string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.answers[subjectID]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// SelectOption records option i for the current question, overwriting any earlier pick.
func (s *Session) SelectOption(i int) error {
	s.mu.Lock()
	if s.state != domain.StateInProgress {
		s.mu.Unlock()
		return domain.ErrNotInProgress
	}
	q := s.sets[s.current][s.index]
	if i < 0 || i >= len(q.Options) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", domain.ErrInvalidOption, i, len(q.Options))
	}
	s.answers[s.current][s.index] = i
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

// Move steps within the current subject. A step leaving the subject is rejected
// without wrapping or crossing into another subject.
func (s *Session) Move(step int) error {
	s.mu.Lock()
	if !s.navigableLocked() {
		s.mu.Unlock()
		return domain.ErrNotInProgress
	}
	next := s.index + step
	if next < 0 || next >= len(s.sets[s.current]) {
		s.mu.Unlock()
		return domain.ErrInvalidNavigation
	}
	s.index = next
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

// Jump moves to an absolute position in the current subject.
func (s *Session) Jump(position int) error {
	s.mu.Lock()
	if !s.navigableLocked() {
		s.mu.Unlock()
		return domain.ErrNotInProgress
	}
	if position < 0 || position >= len(s.sets[s.current]) {
		s.mu.Unlock()
		return domain.ErrInvalidNavigation
	}
	s.index = position
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) SwitchSubject(subjectID string) error {
	s.mu.Lock()
	if !s.navigableLocked() {
		s.mu.Unlock()
		return domain.ErrNotInProgress
	}
	if _, ok := s.sets[subjectID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q not selected", domain.ErrUnknownSubject, subjectID)
	}
	s.current = subjectID
	s.index = 0
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

// ToggleFlag flips the revisit marker on the current question and reports the new value.
func (s *Session) ToggleFlag() (bool, error) {
	s.mu.Lock()
	if s.state != domain.StateInProgress {
		s.mu.Unlock()
		return false, domain.ErrNotInProgress
	}
	flags := s.flags[s.current]
	flags[s.index] = !flags[s.index]
	flagged := flags[s.index]
	s.publishLocked()
	s.mu.Unlock()
	return flagged, nil
}

// Tick takes step off the clock. Reaching zero forces submission in the same
// critical section. It returns false once the countdown should stop.
func (s *Session) Tick(step time.Duration) bool {
	s.mu.Lock()
	if s.state != domain.StateInProgress {
		s.mu.Unlock()
		return false
	}
	s.remaining -= step
	if s.remaining > 0 {
		s.publishLocked()
		s.mu.Unlock()
		return true
	}
	s.remaining = 0
	result, err := s.submitLocked(true)
	s.mu.Unlock()

	if err == nil {
		s.afterSubmit(result)
	}
	return false
}

// Submit freezes the answers and scores them. Exactly one caller wins; later
// callers get the stored result with ErrAlreadySubmitted.
func (s *Session) Submit(forced bool) (domain.ScoreResult, error) {
	s.mu.Lock()
	if s.state != domain.StateInProgress {
		defer s.mu.Unlock()
		if s.result != nil {
			return *s.result, domain.ErrAlreadySubmitted
		}
		return domain.ScoreResult{}, domain.ErrNotInProgress
	}
	result, err := s.submitLocked(forced)
	s.mu.Unlock()
	if err != nil {
		return domain.ScoreResult{}, err
	}

	s.afterSubmit(result)
	return result, nil
}

func (s *Session) submitLocked(forced bool) (domain.ScoreResult, error) {
	result, err := Score(s.subjects, s.sets, s.answers, s.maxScale)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	result.Forced = forced
	s.result = &result
	s.state = domain.StateSubmitted
	s.submittedAt = s.now()
	if s.hooks.stopTimer != nil {
		s.hooks.stopTimer()
	}
	s.publishLocked()
	return result, nil
}

func (s *Session) afterSubmit(result domain.ScoreResult) {
	if s.hooks.submitted != nil {
		s.hooks.submitted(result)
	}
}

// Review switches a submitted exam into read-only navigation, back at the first
// question of the home subject.
func (s *Session) Review() error {
	s.mu.Lock()
	switch s.state {
	case domain.StateSubmitted:
	case domain.StateReviewing:
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return domain.ErrNotSubmitted
	}
	s.state = domain.StateReviewing
	s.current = s.homeSubject()
	s.index = 0
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) Result() (domain.ScoreResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.ScoreResult{}, false
	}
	return *s.result, true
}

func (s *Session) View() domain.QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Corrections is the review projection over a submitted exam.
func (s *Session) Corrections() ([]domain.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateSubmitted && s.state != domain.StateReviewing {
		return nil, domain.ErrNotSubmitted
	}
	return corrections(s.subjects, s.sets, s.answers, s.flags), nil
}

func (s *Session) navigableLocked() bool {
	return s.state == domain.StateInProgress || s.state == domain.StateReviewing
}

func (s *Session) viewLocked() domain.QuestionView {
	questions := s.sets[s.current]
	q := questions[s.index]
	options := make([]string, len(q.Options))
	copy(options, q.Options)

	view := domain.QuestionView{
		SubjectID: s.current,
		Position:  s.index,
		Total:     len(questions),
		Prompt:    q.Prompt,
		Passage:   q.Passage,
		Options:   options,
		Selected:  s.answers[s.current][s.index],
		Flagged:   s.flags[s.current][s.index],
	}
	if s.state == domain.StateSubmitted || s.state == domain.StateReviewing {
		annotate(&view, q)
	}
	return view
}

func (s *Session) snapshotLocked() domain.Snapshot {
	progress := make([]domain.SubjectProgress, 0, len(s.subjects))
	for _, sub := range s.subjects {
		p := domain.SubjectProgress{SubjectID: sub.ID, Total: len(s.sets[sub.ID])}
		for _, a := range s.answers[sub.ID] {
			if a != domain.Unanswered {
				p.Answered++
			}
		}
		for _, f := range s.flags[sub.ID] {
			if f {
				p.Flagged++
			}
		}
		progress = append(progress, p)
	}

	snap := domain.Snapshot{
		SessionID: s.id,
		State:     s.state,
		Subjects:  progress,
		Remaining: domain.RemainingFrom(s.remaining),
		Current:   s.viewLocked(),
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

// publishLocked runs under mu so subscribers see snapshots in mutation order.
// The changed hook must not call back into the session.
func (s *Session) publishLocked() {
	if s.hooks.changed != nil {
		s.hooks.changed(s.snapshotLocked())
	}
}
