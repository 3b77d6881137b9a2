package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/questionbank"
)

// BankLoader reads <dir>/<subject lower>.json.
type BankLoader struct {
	dir string
}

func NewBankLoader(dir string) *BankLoader {
	return &BankLoader{dir: dir}
}

// BankFileName maps a subject id to its bank file name.
func BankFileName(subjectID string) string {
	return strings.ToLower(subjectID) + ".json"
}

func (l *BankLoader) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, filepath.Base(BankFileName(subjectID)))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return questionbank.Decode(data)
}
