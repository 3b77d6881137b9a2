package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cbt-exam-runner/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a subject's questions from a backing source (files, HTTP, DB).
type BankLoader interface {
	LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// BankRepository caches question sets with a TTL so repeated exams skip the source.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	if qs, ok := r.lookup(subjectID); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		if qs, ok := r.lookup(subjectID); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[subjectID] = cachedBank{
			questions: qs,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *BankRepository) lookup(subjectID string) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[subjectID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.questions, true
}

// StaticBankLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadQuestions(_ context.Context, subjectID string) ([]domain.Question, error) {
	if qs, ok := l.banks[subjectID]; ok {
		return qs, nil
	}
	return nil, domain.ErrBankNotFound
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
