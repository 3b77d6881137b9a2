package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"cbt-exam-runner/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultHistoryKey is the list holding score records.
const DefaultHistoryKey = "jamb_history"

// HistoryStore keeps records in a Redis list, newest at the head.
type HistoryStore struct {
	client *redis.Client
	key    string
}

func NewHistoryStore(client *redis.Client, key string) *HistoryStore {
	if key == "" {
		key = DefaultHistoryKey
	}
	return &HistoryStore{client: client, key: key}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, s.key, data).Err()
}

func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for i, item := range raw {
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("history item %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
