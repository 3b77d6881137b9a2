package app

import "cbt-exam-runner/internal/domain"

const skippedLabel = "Skipped"

// NoExplanation is shown in review when a question carries no explanation.
const NoExplanation = "No explanation provided."

// corrections builds the per-question review list. It only reads its inputs.
func corrections(subjects []domain.Subject, sets map[string][]domain.Question, answers map[string][]int, flags map[string][]bool) []domain.ReviewItem {
	var items []domain.ReviewItem
	for _, sub := range subjects {
		recorded := answers[sub.ID]
		marked := flags[sub.ID]
		for i, q := range sets[sub.ID] {
			selected := domain.Unanswered
			if i < len(recorded) {
				selected = recorded[i]
			}
			item := domain.ReviewItem{
				SubjectID:     sub.ID,
				Position:      i,
				Prompt:        q.Prompt,
				CorrectAnswer: q.Options[q.CorrectIndex],
				YourAnswer:    skippedLabel,
				Outcome:       Classify(selected, q.CorrectIndex),
				Flagged:       i < len(marked) && marked[i],
			}
			if selected >= 0 && selected < len(q.Options) {
				item.YourAnswer = q.Options[selected]
			}
			items = append(items, item)
		}
	}
	return items
}

// annotate adds the key, outcome and explanation to a view of a submitted question.
func annotate(view *domain.QuestionView, q domain.Question) {
	key := q.CorrectIndex
	view.Key = &key
	view.Outcome = Classify(view.Selected, key)
	view.Explanation = q.Explanation
	if view.Explanation == "" {
		view.Explanation = NoExplanation
	}
}

// OptionMark is how a renderer should style one option of a reviewed question.
type OptionMark string

const (
	MarkNone     OptionMark = ""
	MarkSelected OptionMark = "selected"
	MarkCorrect  OptionMark = "correct"
	MarkWrong    OptionMark = "wrong"
)

// MarkOption styles option i of a view: before submission only the pick is shown;
// afterwards the key is marked correct and a wrong pick is marked wrong.
func MarkOption(view domain.QuestionView, i int) OptionMark {
	if view.Key == nil {
		if view.Selected == i {
			return MarkSelected
		}
		return MarkNone
	}
	if i == *view.Key {
		return MarkCorrect
	}
	if i == view.Selected {
		return MarkWrong
	}
	return MarkNone
}
