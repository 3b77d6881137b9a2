package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/questionbank"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a subject's questions from the source of truth.
type BankLoader interface {
	LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// BankRepository caches banks in Redis as canonical JSON and falls back to the loader on a miss.
// Banks are stored as: SET bank:{subjectID} <json>
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	if qs, ok := r.cached(ctx, subjectID); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cached(ctx, subjectID); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		if data, err := questionbank.Encode(qs); err == nil {
			_ = r.client.Set(ctx, r.key(subjectID), data, r.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a cached bank so the next load goes to the source.
func (r *BankRepository) Invalidate(ctx context.Context, subjectID string) error {
	return r.client.Del(ctx, r.key(subjectID)).Err()
}

// cached treats unreadable entries as misses.
func (r *BankRepository) cached(ctx context.Context, subjectID string) ([]domain.Question, bool) {
	data, err := r.client.Get(ctx, r.key(subjectID)).Bytes()
	if err != nil {
		return nil, false
	}
	qs, err := questionbank.Decode(data)
	if err != nil {
		return nil, false
	}
	return qs, true
}

func (r *BankRepository) key(subjectID string) string {
	return "bank:" + subjectID
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
