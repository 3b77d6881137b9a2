package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cbt-exam-runner/internal/domain"
)

func newTestSession(t *testing.T, hooks sessionHooks) *Session {
	t.Helper()
	subjects, sets := twoQuestionSets([]int{0, 1, 1, 0, 0, 1, 1, 0})
	sets["Physics"] = append(sets["Physics"], domain.Question{Prompt: "third", Options: []string{"x", "y"}, CorrectIndex: 1})
	sess, err := newSession(SessionConfig{
		ID:       "s1",
		Subjects: subjects,
		Sets:     sets,
		Duration: 3 * time.Second,
		MaxScale: 400,
	}, hooks)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

func TestNewSessionInitializesAnswers(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})
	for _, sub := range sess.Subjects() {
		answers := sess.Answers(sub.ID)
		want := 2
		if sub.ID == "Physics" {
			want = 3
		}
		if len(answers) != want {
			t.Fatalf("%s: expected %d answer slots, got %d", sub.ID, want, len(answers))
		}
		for _, a := range answers {
			if a != domain.Unanswered {
				t.Fatalf("%s: expected unanswered, got %d", sub.ID, a)
			}
		}
	}
	view := sess.View()
	if view.SubjectID != "English" || view.Position != 0 || view.Key != nil {
		t.Fatalf("unexpected initial view %+v", view)
	}
	if sess.State() != domain.StateInProgress {
		t.Fatalf("expected in progress, got %s", sess.State())
	}
}

func TestNewSessionRejectsEmptySubject(t *testing.T) {
	subjects, sets := twoQuestionSets([]int{0, 1, 1, 0, 0, 1, 1, 0})
	sets["Biology"] = nil
	_, err := NewSession(SessionConfig{Subjects: subjects, Sets: sets})
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) || loadErr.SubjectID != "Biology" || !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty set load error for Biology, got %v", err)
	}
}

func TestSelectOptionOverwritesAndRejectsOutOfRange(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})

	if err := sess.SelectOption(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := sess.SelectOption(0); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if err := sess.SelectOption(5); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if err := sess.SelectOption(-1); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option for -1, got %v", err)
	}
	if got := sess.Answers("English")[0]; got != 0 {
		t.Fatalf("expected last write 0, got %d", got)
	}
}

func TestMoveStaysInsideSubject(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})

	if err := sess.Move(-1); !errors.Is(err, domain.ErrInvalidNavigation) {
		t.Fatalf("expected invalid navigation at start, got %v", err)
	}
	steps := []int{1, 1, 1, -1, -1, -1, 5, -5, 1}
	for _, step := range steps {
		_ = sess.Move(step)
		v := sess.View()
		if v.Position < 0 || v.Position >= v.Total {
			t.Fatalf("index %d escaped [0,%d)", v.Position, v.Total)
		}
		if v.SubjectID != "English" {
			t.Fatalf("move crossed into %s", v.SubjectID)
		}
	}
	if v := sess.View(); v.Position != 1 {
		t.Fatalf("expected position 1, got %d", v.Position)
	}
}

func TestSwitchSubjectResetsIndex(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})
	_ = sess.Move(1)
	if err := sess.SwitchSubject("Physics"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if v := sess.View(); v.SubjectID != "Physics" || v.Position != 0 || v.Total != 3 {
		t.Fatalf("unexpected view after switch %+v", v)
	}
	if err := sess.SwitchSubject("Chemistry"); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
	if err := sess.Jump(2); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if err := sess.Jump(3); !errors.Is(err, domain.ErrInvalidNavigation) {
		t.Fatalf("expected invalid jump, got %v", err)
	}
}

func TestToggleFlagDoesNotAffectScore(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})
	flagged, err := sess.ToggleFlag()
	if err != nil || !flagged {
		t.Fatalf("expected flagged, got %v %v", flagged, err)
	}
	if snap := sess.Snapshot(); snap.Subjects[0].Flagged != 1 {
		t.Fatalf("expected one flag, got %+v", snap.Subjects[0])
	}
	flagged, _ = sess.ToggleFlag()
	if flagged {
		t.Fatalf("expected flag cleared")
	}
	_, _ = sess.ToggleFlag()
	result, err := sess.Submit(false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 0 {
		t.Fatalf("flags must not score, got %+v", result)
	}
}

func TestSubmitFreezesSession(t *testing.T) {
	calls := 0
	sess := newTestSession(t, sessionHooks{submitted: func(domain.ScoreResult) { calls++ }})
	_ = sess.SelectOption(0)

	if _, err := sess.Submit(false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := sess.SelectOption(1); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected select rejected after submit, got %v", err)
	}
	if _, err := sess.ToggleFlag(); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected flag rejected after submit, got %v", err)
	}
	if err := sess.Move(1); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected navigation disabled until review, got %v", err)
	}
	if sess.Answers("English")[0] != 0 {
		t.Fatalf("answers mutated after submit")
	}
	if _, err := sess.Submit(false); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if sess.Tick(time.Second) {
		t.Fatalf("tick after submit should stop the countdown")
	}
	if calls != 1 {
		t.Fatalf("expected one submission hook call, got %d", calls)
	}
}

func TestReviewAllowsNavigationOnly(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})
	_ = sess.SelectOption(1) // English q0 key 0 -> incorrect
	_ = sess.Move(1)
	_ = sess.SelectOption(1) // English q1 key 1 -> correct

	if err := sess.Review(); !errors.Is(err, domain.ErrNotSubmitted) {
		t.Fatalf("expected review rejected before submit, got %v", err)
	}
	if _, err := sess.Submit(false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := sess.Review(); err != nil {
		t.Fatalf("review: %v", err)
	}

	v := sess.View()
	if v.Position != 0 || v.Outcome != domain.OutcomeIncorrect || v.Key == nil || *v.Key != 0 {
		t.Fatalf("unexpected first review view %+v", v)
	}
	if v.Explanation != NoExplanation {
		t.Fatalf("expected placeholder explanation, got %q", v.Explanation)
	}
	if MarkOption(v, 0) != MarkCorrect || MarkOption(v, 1) != MarkWrong || MarkOption(v, 2) != MarkNone {
		t.Fatalf("unexpected option marks")
	}
	if err := sess.Move(1); err != nil {
		t.Fatalf("move in review: %v", err)
	}
	if v := sess.View(); v.Outcome != domain.OutcomeCorrect {
		t.Fatalf("expected correct, got %s", v.Outcome)
	}
	if err := sess.SwitchSubject("Biology"); err != nil {
		t.Fatalf("switch in review: %v", err)
	}
	if v := sess.View(); v.Outcome != domain.OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", v.Outcome)
	}
	if err := sess.SelectOption(0); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("select must be a no-op in review, got %v", err)
	}
	if sess.Answers("Biology")[0] != domain.Unanswered {
		t.Fatalf("review mutated answers")
	}
}

func TestCorrections(t *testing.T) {
	sess := newTestSession(t, sessionHooks{})
	if _, err := sess.Corrections(); !errors.Is(err, domain.ErrNotSubmitted) {
		t.Fatalf("expected not submitted, got %v", err)
	}
	_ = sess.SelectOption(3)
	_, _ = sess.Submit(false)

	items, err := sess.Corrections()
	if err != nil {
		t.Fatalf("corrections: %v", err)
	}
	if len(items) != 9 {
		t.Fatalf("expected 9 items, got %d", len(items))
	}
	first := items[0]
	if first.YourAnswer != "D" || first.CorrectAnswer != "A" || first.Outcome != domain.OutcomeIncorrect {
		t.Fatalf("unexpected first item %+v", first)
	}
	if items[1].YourAnswer != "Skipped" || items[1].Outcome != domain.OutcomeSkipped {
		t.Fatalf("unexpected skipped item %+v", items[1])
	}
}

func TestTickForcesSubmissionAtZero(t *testing.T) {
	var results []domain.ScoreResult
	stopped := false
	sess := newTestSession(t, sessionHooks{
		stopTimer: func() { stopped = true },
		submitted: func(r domain.ScoreResult) { results = append(results, r) },
	})
	_ = sess.SelectOption(0)

	if !sess.Tick(time.Second) || !sess.Tick(time.Second) {
		t.Fatalf("countdown should continue above zero")
	}
	if got := sess.Remaining(); got != (domain.Remaining{Seconds: 1}) {
		t.Fatalf("expected 1s left, got %+v", got)
	}
	if sess.Tick(time.Second) {
		t.Fatalf("countdown should stop at zero")
	}
	if sess.State() != domain.StateSubmitted || !stopped {
		t.Fatalf("expected forced submission, state=%s stopped=%v", sess.State(), stopped)
	}
	if len(results) != 1 || !results[0].Forced || results[0].Correct != 1 {
		t.Fatalf("unexpected forced results %+v", results)
	}
	if got := sess.Remaining(); got != (domain.Remaining{}) {
		t.Fatalf("remaining should clamp at zero, got %+v", got)
	}
}

func TestForcedAndManualSubmitRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		var mu sync.Mutex
		calls := 0
		sess, err := newSession(SessionConfig{
			Subjects: []domain.Subject{{ID: "English", Mandatory: true}},
			Sets:     map[string][]domain.Question{"English": {{Options: []string{"a", "b"}}}},
			Duration: time.Second,
			MaxScale: 400,
		}, sessionHooks{submitted: func(domain.ScoreResult) {
			mu.Lock()
			calls++
			mu.Unlock()
		}})
		if err != nil {
			t.Fatalf("new session: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); sess.Tick(time.Second) }()
		go func() { defer wg.Done(); _, _ = sess.Submit(false) }()
		wg.Wait()

		if calls != 1 {
			t.Fatalf("iteration %d: expected exactly one submission, got %d", i, calls)
		}
	}
}

func TestRemainingFormatting(t *testing.T) {
	r := domain.RemainingFrom(2*time.Hour + 5*time.Minute + 7*time.Second)
	if r.String() != "02:05:07" {
		t.Fatalf("unexpected format %s", r)
	}
	if domain.RemainingFrom(-time.Second) != (domain.Remaining{}) {
		t.Fatalf("negative remaining must clamp")
	}
}
