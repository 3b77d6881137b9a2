package questionbank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"cbt-exam-runner/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// wireQuestion is the on-disk shape. The key is read from "correct"; "a" is the
// legacy name some banks still carry.
type wireQuestion struct {
	Q           string   `json:"q" validate:"required"`
	P           string   `json:"p,omitempty"`
	Options     []string `json:"options" validate:"min=2"`
	Correct     *int     `json:"correct,omitempty"`
	A           *int     `json:"a,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

type wireBank struct {
	Questions json.RawMessage `json:"questions"`
}

// Decode parses a bank that is either a bare array of questions or an object
// with a "questions" field.
func Decode(data []byte) ([]domain.Question, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	raw := data
	if data[0] == '{' {
		var bank wireBank
		if err := json.Unmarshal(data, &bank); err != nil {
			return nil, fmt.Errorf("decode bank: %w", err)
		}
		if len(bank.Questions) == 0 {
			return nil, errors.New("decode bank: missing questions field")
		}
		raw = bank.Questions
	}

	var items []wireQuestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	questions := make([]domain.Question, 0, len(items))
	for i, item := range items {
		q, err := item.toDomain()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Encode writes questions in the canonical wire shape.
func Encode(questions []domain.Question) ([]byte, error) {
	items := make([]wireQuestion, 0, len(questions))
	for _, q := range questions {
		key := q.CorrectIndex
		items = append(items, wireQuestion{
			Q:           q.Prompt,
			P:           q.Passage,
			Options:     q.Options,
			Correct:     &key,
			Explanation: q.Explanation,
		})
	}
	return json.Marshal(items)
}

func (w wireQuestion) toDomain() (domain.Question, error) {
	if err := validate.Struct(w); err != nil {
		return domain.Question{}, err
	}

	var key int
	switch {
	case w.Correct != nil && w.A != nil && *w.Correct != *w.A:
		return domain.Question{}, fmt.Errorf("conflicting answer keys correct=%d a=%d", *w.Correct, *w.A)
	case w.Correct != nil:
		key = *w.Correct
	case w.A != nil:
		key = *w.A
	default:
		return domain.Question{}, errors.New("missing answer key")
	}
	if key < 0 || key >= len(w.Options) {
		return domain.Question{}, fmt.Errorf("answer key %d outside %d options", key, len(w.Options))
	}

	options := make([]string, len(w.Options))
	copy(options, w.Options)
	return domain.Question{
		Prompt:       w.Q,
		Passage:      w.P,
		Options:      options,
		CorrectIndex: key,
		Explanation:  w.Explanation,
	}, nil
}
