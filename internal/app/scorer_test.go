package app

import (
	"errors"
	"testing"

	"cbt-exam-runner/internal/domain"
)

func twoQuestionSets(keys []int) ([]domain.Subject, map[string][]domain.Question) {
	subjects := []domain.Subject{{ID: "English", Mandatory: true}, {ID: "Mathematics"}, {ID: "Physics"}, {ID: "Biology"}}
	sets := make(map[string][]domain.Question)
	for i, sub := range subjects {
		for j := 0; j < 2; j++ {
			sets[sub.ID] = append(sets[sub.ID], domain.Question{
				Prompt:       sub.ID,
				Options:      []string{"A", "B", "C", "D"},
				CorrectIndex: keys[i*2+j],
			})
		}
	}
	return subjects, sets
}

func TestScoreWorkedExample(t *testing.T) {
	subjects, sets := twoQuestionSets([]int{0, 1, 1, 0, 0, 1, 1, 0})
	answers := map[string][]int{
		"English":     {0, 1},
		"Mathematics": {0, 0},
		"Physics":     {1, 1},
		"Biology":     {1, 1},
	}

	result, err := Score(subjects, sets, answers, 400)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	wantCorrect := []int{2, 1, 1, 1}
	wantPercent := []int{100, 50, 50, 50}
	for i, s := range result.PerSubject {
		if s.Correct != wantCorrect[i] || s.Total != 2 || s.Percent != wantPercent[i] {
			t.Fatalf("subject %s: got %+v", s.SubjectID, s)
		}
	}
	if result.Correct != 5 || result.Total != 8 || result.Aggregate != 250 {
		t.Fatalf("expected 5/8 -> 250, got %+v", result)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	subjects, sets := twoQuestionSets([]int{0, 1, 1, 0, 0, 1, 1, 0})
	answers := map[string][]int{
		"English":     {0, domain.Unanswered},
		"Mathematics": {1, 0},
		"Physics":     {domain.Unanswered, domain.Unanswered},
		"Biology":     {3, 0},
	}
	first, err := Score(subjects, sets, answers, 400)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	second, _ := Score(subjects, sets, answers, 400)
	if first.Aggregate != second.Aggregate || first.Correct != second.Correct {
		t.Fatalf("scores differ: %+v vs %+v", first, second)
	}
	if first.Correct != 4 || first.Aggregate != 200 {
		t.Fatalf("expected 4 correct -> 200, got %+v", first)
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	subjects := []domain.Subject{{ID: "English", Mandatory: true}}
	sets := map[string][]domain.Question{"English": make([]domain.Question, 8)}
	answers := map[string][]int{"English": {0, domain.Unanswered, domain.Unanswered, domain.Unanswered, domain.Unanswered, domain.Unanswered, domain.Unanswered, domain.Unanswered}}

	// 1/8 = 12.5% -> 13, and 1/8 * 100 scale = 12.5 -> 13.
	result, err := Score(subjects, sets, answers, 100)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.PerSubject[0].Percent != 13 || result.Aggregate != 13 {
		t.Fatalf("expected half-up rounding to 13, got %+v", result)
	}
}

func TestScoreFailsOnEmptySubject(t *testing.T) {
	subjects := []domain.Subject{{ID: "English", Mandatory: true}, {ID: "Physics"}}
	sets := map[string][]domain.Question{
		"English": {{Options: []string{"a", "b"}}},
	}
	_, err := Score(subjects, sets, map[string][]int{"English": {0}}, 400)
	if !errors.Is(err, domain.ErrScoringInvariant) {
		t.Fatalf("expected scoring invariant error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(domain.Unanswered, 1) != domain.OutcomeSkipped {
		t.Fatalf("unanswered should be skipped")
	}
	if Classify(1, 1) != domain.OutcomeCorrect {
		t.Fatalf("matching key should be correct")
	}
	if Classify(2, 1) != domain.OutcomeIncorrect {
		t.Fatalf("wrong pick should be incorrect")
	}
}
