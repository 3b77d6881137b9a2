// Package httpbank fetches question banks served as static JSON files.
package httpbank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/questionbank"
)

// maxBankSize caps a single response body.
const maxBankSize = 8 << 20

type BankLoader struct {
	baseURL string
	client  *http.Client
}

// NewBankLoader requests <baseURL>/<subject lower>.json. A zero timeout leaves
// cancellation to the caller's context.
func NewBankLoader(baseURL string, timeout time.Duration) *BankLoader {
	return &BankLoader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *BankLoader) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	target := l.baseURL + "/" + url.PathEscape(strings.ToLower(subjectID)+".json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bank: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, target)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch bank: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBankSize))
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return questionbank.Decode(data)
}
