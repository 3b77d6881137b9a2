package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cbt-exam-runner/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// BankLoader fetches one subject's questions (filesystem, HTTP, Postgres, caches).
type BankLoader interface {
	LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// HistoryStore is the append-only score log.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	// List returns entries most recent first.
	List(ctx context.Context) ([]domain.HistoryEntry, error)
}

const (
	DefaultRequiredCount = 4
	DefaultMaxScale      = 400
	DefaultDuration      = 2 * time.Hour
	DefaultTickInterval  = time.Second
)

// Options tune the exam engine. Zero values fall back to the defaults above.
type Options struct {
	RequiredCount int
	MaxScale      int
	Duration      time.Duration
	TickInterval  time.Duration
	// LoadTimeout bounds the whole loading phase; zero waits indefinitely.
	LoadTimeout time.Duration

	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
	NewID     func() string
	Logger    *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.RequiredCount == 0 {
		o.RequiredCount = DefaultRequiredCount
	}
	if o.MaxScale == 0 {
		o.MaxScale = DefaultMaxScale
	}
	if o.Duration == 0 {
		o.Duration = DefaultDuration
	}
	if o.TickInterval == 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewTicker == nil {
		o.NewTicker = NewRealTicker
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	return o
}

// ExamService owns the subject selection and the single live session.
type ExamService struct {
	loader  BankLoader
	history HistoryStore
	opts    Options
	log     zerolog.Logger

	mu         sync.Mutex
	selector   *Selector
	loading    bool
	generation uint64
	session    *Session
	timer      *Timer

	subMu       sync.Mutex
	subscribers map[chan domain.Snapshot]struct{}
}

func NewExamService(catalog []domain.Subject, loader BankLoader, history HistoryStore, opts Options) (*ExamService, error) {
	opts = opts.withDefaults()
	selector, err := NewSelector(catalog, opts.RequiredCount)
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &ExamService{
		loader:      loader,
		history:     history,
		opts:        opts,
		log:         log.With().Str("component", "exam_service").Logger(),
		selector:    selector,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}, nil
}

func (s *ExamService) Catalog() []domain.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Catalog()
}

func (s *ExamService) RequiredCount() int { return s.selector.Required() }

// Toggle changes the subject selection. Selection is frozen while loading or
// while an exam is in progress.
func (s *ExamService) Toggle(subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return domain.ErrSessionBusy
	}
	return s.selector.Toggle(subjectID)
}

func (s *ExamService) Selection() []domain.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Selected()
}

func (s *ExamService) IsSelected(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.IsSelected(subjectID)
}

func (s *ExamService) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.CanStart()
}

// State reports the lifecycle state, Setup when no session exists.
func (s *ExamService) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.loading:
		return domain.StateLoading
	case s.session == nil:
		return domain.StateSetup
	default:
		return s.session.State()
	}
}

// Session returns the live session.
func (s *ExamService) Session() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, domain.ErrNoSession
	}
	return s.session, nil
}

// Start loads every selected subject and opens a new session. If any subject
// fails to load, no session is created and the service stays in Setup.
func (s *ExamService) Start(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	if !s.selector.CanStart() {
		s.mu.Unlock()
		return nil, domain.ErrSelectionIncomplete
	}
	subjects := s.selector.Selected()
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	sets, err := s.loadAll(ctx, subjects)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Reset while loading; the results belong to nobody.
		return nil, domain.ErrNoSession
	}
	s.loading = false
	if err != nil {
		s.log.Warn().Err(err).Msg("exam start aborted")
		return nil, err
	}

	s.discardLocked()

	var sess *Session
	timer := NewTimer(s.opts.TickInterval, s.opts.NewTicker)
	sess, err = newSession(SessionConfig{
		ID:       s.opts.NewID(),
		Subjects: subjects,
		Sets:     sets,
		Duration: s.opts.Duration,
		MaxScale: s.opts.MaxScale,
		Now:      s.opts.Now,
	}, sessionHooks{
		stopTimer: timer.Stop,
		submitted: func(result domain.ScoreResult) { s.recordResult(sess, gen, result) },
		changed:   s.broadcast,
	})
	if err != nil {
		return nil, err
	}
	s.session = sess
	s.timer = timer
	timer.Start(sess.Tick)

	s.log.Info().
		Str("session_id", sess.ID()).
		Str("subjects", subjectLabel(subjects)).
		Dur("duration", s.opts.Duration).
		Msg("exam started")
	s.broadcast(sess.Snapshot())
	return sess, nil
}

// loadAll fetches every subject concurrently and fails on the first error,
// cancelling the rest.
func (s *ExamService) loadAll(ctx context.Context, subjects []domain.Subject) (map[string][]domain.Question, error) {
	if s.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.LoadTimeout)
		defer cancel()
	}

	results := make([][]domain.Question, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subjects {
		g.Go(func() error {
			questions, err := s.loader.LoadQuestions(gctx, sub.ID)
			if err != nil {
				return &domain.LoadError{SubjectID: sub.ID, Err: err}
			}
			if len(questions) == 0 {
				return &domain.LoadError{SubjectID: sub.ID, Err: domain.ErrEmptyQuestionSet}
			}
			results[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sets := make(map[string][]domain.Question, len(subjects))
	for i, sub := range subjects {
		sets[sub.ID] = results[i]
	}
	return sets, nil
}

// Submit is the manual path and needs the caller's confirmation.
func (s *ExamService) Submit(confirmed bool) (domain.ScoreResult, error) {
	sess, err := s.Session()
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if !confirmed {
		if sess.State() != domain.StateInProgress {
			return domain.ScoreResult{}, domain.ErrNotInProgress
		}
		return domain.ScoreResult{}, domain.ErrConfirmationRequired
	}
	return sess.Submit(false)
}

func (s *ExamService) Review() error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	return sess.Review()
}

// Reset discards the live session and returns to Setup with only the
// mandatory subject selected. It returns once the discarded countdown has
// exited.
func (s *ExamService) Reset() {
	s.mu.Lock()
	s.generation++
	s.loading = false
	timer := s.timer
	s.discardLocked()
	s.selector.Reset()
	s.mu.Unlock()

	if timer != nil {
		<-timer.Done()
	}
	s.broadcast(domain.Snapshot{State: domain.StateSetup})
}

func (s *ExamService) discardLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.session = nil
}

func (s *ExamService) busyLocked() bool {
	return s.loading || (s.session != nil && s.session.State() == domain.StateInProgress)
}

// recordResult appends the history entry for a session opened in generation
// gen. A session discarded by Reset leaves no history behind.
func (s *ExamService) recordResult(sess *Session, gen uint64, result domain.ScoreResult) {
	s.mu.Lock()
	stale := gen != s.generation
	s.mu.Unlock()
	if stale {
		s.log.Debug().Str("session_id", sess.ID()).Msg("discarded session submitted, history skipped")
		return
	}

	entry := domain.HistoryEntry{
		ID:           s.opts.NewID(),
		SubjectLabel: subjectLabel(sess.Subjects()),
		Value:        result.Aggregate,
		Timestamp:    sess.SubmittedAt(),
	}
	s.log.Info().
		Str("session_id", sess.ID()).
		Bool("forced", result.Forced).
		Int("aggregate", result.Aggregate).
		Int("correct", result.Correct).
		Int("total", result.Total).
		Dur("taken", entry.Timestamp.Sub(sess.StartedAt())).
		Msg("exam submitted")

	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID()).Msg("history append failed")
	}
}

// History lists past results, most recent first.
func (s *ExamService) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	if s.history == nil {
		return nil, errors.New("history store not configured")
	}
	return s.history.List(ctx)
}

// Leaderboard is the history plus the average value across all entries.
func (s *ExamService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := s.History(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return NewLeaderboard(entries), nil
}

func NewLeaderboard(entries []domain.HistoryEntry) domain.Leaderboard {
	lb := domain.Leaderboard{Entries: entries}
	if len(entries) == 0 {
		return lb
	}
	total := 0
	for _, e := range entries {
		total += e.Value
	}
	lb.Average = float64(total) / float64(len(entries))
	return lb
}

// Subscribe returns a channel of snapshots. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *ExamService) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	var initial *domain.Snapshot
	if sess, err := s.Session(); err == nil {
		snap := sess.Snapshot()
		initial = &snap
	}

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	if initial != nil {
		ch <- *initial
	}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast never blocks: a full subscriber loses its oldest pending snapshot.
func (s *ExamService) broadcast(snap domain.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func subjectLabel(subjects []domain.Subject) string {
	ids := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		ids = append(ids, sub.ID)
	}
	return strings.Join(ids, ", ")
}
