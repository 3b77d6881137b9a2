package app

import (
	"fmt"
	"math"

	"cbt-exam-runner/internal/domain"
)

// Score computes per-subject counts and the aggregate scaled onto maxScale.
// It reads only the final recorded answer for each position.
func Score(subjects []domain.Subject, sets map[string][]domain.Question, answers map[string][]int, maxScale int) (domain.ScoreResult, error) {
	result := domain.ScoreResult{
		PerSubject: make([]domain.SubjectScore, 0, len(subjects)),
		MaxScale:   maxScale,
	}
	for _, sub := range subjects {
		questions := sets[sub.ID]
		if len(questions) == 0 {
			return domain.ScoreResult{}, fmt.Errorf("%w: %s", domain.ErrScoringInvariant, sub.ID)
		}
		recorded := answers[sub.ID]
		correct := 0
		for i, q := range questions {
			if i < len(recorded) && recorded[i] == q.CorrectIndex {
				correct++
			}
		}
		result.PerSubject = append(result.PerSubject, domain.SubjectScore{
			SubjectID: sub.ID,
			Correct:   correct,
			Total:     len(questions),
			Percent:   roundHalfUp(float64(correct) / float64(len(questions)) * 100),
		})
		result.Correct += correct
		result.Total += len(questions)
	}
	if result.Total == 0 {
		return domain.ScoreResult{}, domain.ErrScoringInvariant
	}
	result.Aggregate = roundHalfUp(float64(result.Correct) / float64(result.Total) * float64(maxScale))
	return result, nil
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Classify maps a recorded answer against the key.
func Classify(selected, key int) domain.Outcome {
	switch {
	case selected == domain.Unanswered:
		return domain.OutcomeSkipped
	case selected == key:
		return domain.OutcomeCorrect
	default:
		return domain.OutcomeIncorrect
	}
}
