package terminal

import (
	"fmt"
	"strings"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/domain"
)

const (
	examKeys   = "a-d answer  n next  p prev  f flag  1-9 subject  s submit  k calc  q quit"
	resultKeys = "r review  q quit"
	reviewKeys = "n next  p prev  1-9 subject  k calc  q quit"
)

func optionLetter(i int) string { return string(rune('A' + i)) }

func renderCatalog(b *strings.Builder, catalog []domain.Subject, required int) {
	fmt.Fprintf(b, "Choose %d subjects.\n", required)
	for i, sub := range catalog {
		note := ""
		if sub.Mandatory {
			note = "  (compulsory)"
		}
		fmt.Fprintf(b, "  %2d. %s%s\n", i+1, sub.ID, note)
	}
}

func renderExam(b *strings.Builder, snap domain.Snapshot, status string) {
	fmt.Fprintf(b, "Time left %s   [%s]\n", snap.Remaining, snap.State)
	for i, p := range snap.Subjects {
		marker := " "
		if p.SubjectID == snap.Current.SubjectID {
			marker = "*"
		}
		fmt.Fprintf(b, "%s%d %s %d/%d answered", marker, i+1, p.SubjectID, p.Answered, p.Total)
		if p.Flagged > 0 {
			fmt.Fprintf(b, ", %d flagged", p.Flagged)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	view := snap.Current
	fmt.Fprintf(b, "%s  Question %d of %d", view.SubjectID, view.Position+1, view.Total)
	if view.Flagged {
		b.WriteString("  [flagged]")
	}
	b.WriteString("\n")
	if view.Passage != "" {
		fmt.Fprintf(b, "%s\n\n", view.Passage)
	}
	fmt.Fprintf(b, "%s\n", view.Prompt)
	for i, opt := range view.Options {
		switch app.MarkOption(view, i) {
		case app.MarkSelected:
			fmt.Fprintf(b, "> (%s) %s\n", optionLetter(i), opt)
		case app.MarkCorrect:
			fmt.Fprintf(b, "  (%s) %s  [correct]\n", optionLetter(i), opt)
		case app.MarkWrong:
			fmt.Fprintf(b, "  (%s) %s  [your answer]\n", optionLetter(i), opt)
		default:
			fmt.Fprintf(b, "  (%s) %s\n", optionLetter(i), opt)
		}
	}
	if view.Key != nil {
		if view.Selected == domain.Unanswered {
			b.WriteString("You skipped this question.\n")
		}
		fmt.Fprintf(b, "Explanation: %s\n", view.Explanation)
	}

	b.WriteString("\n")
	if snap.State == domain.StateReviewing {
		b.WriteString(reviewKeys)
	} else {
		b.WriteString(examKeys)
	}
	b.WriteString("\n")
	if status != "" {
		fmt.Fprintf(b, "%s\n", status)
	}
}

func renderResult(b *strings.Builder, result domain.ScoreResult, items []domain.ReviewItem, status string) {
	if result.Forced {
		b.WriteString("Time up! Your exam was submitted automatically.\n")
	} else {
		b.WriteString("Exam submitted.\n")
	}
	fmt.Fprintf(b, "Score: %d / %d\n", result.Aggregate, result.MaxScale)
	for _, s := range result.PerSubject {
		fmt.Fprintf(b, "  %-12s %d/%d  %d%%\n", s.SubjectID, s.Correct, s.Total, s.Percent)
	}

	if len(items) > 0 {
		b.WriteString("\nCorrections:\n")
		for _, item := range items {
			fmt.Fprintf(b, "  %s %d. %s\n", item.SubjectID, item.Position+1, item.Prompt)
			fmt.Fprintf(b, "     answer: %s   yours: %s\n", item.CorrectAnswer, item.YourAnswer)
		}
	}
	fmt.Fprintf(b, "\n%s\n", resultKeys)
	if status != "" {
		fmt.Fprintf(b, "%s\n", status)
	}
}

func renderLeaderboard(b *strings.Builder, lb domain.Leaderboard) {
	if len(lb.Entries) == 0 {
		b.WriteString("No exams taken yet.\n")
		return
	}
	for _, e := range lb.Entries {
		fmt.Fprintf(b, "%s  %3d  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Value, e.SubjectLabel)
	}
	fmt.Fprintf(b, "Average: %.1f over %d exams\n", lb.Average, len(lb.Entries))
}
