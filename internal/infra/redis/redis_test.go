package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string][]domain.Question{
			"English": sampleQuestions(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	qs, err := repo.LoadQuestions(context.Background(), "English")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.count() != 1 || len(qs) != 2 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("bank:English") {
		t.Fatalf("expected bank cached in redis")
	}
	if ttl := mr.TTL("bank:English"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.LoadQuestions(context.Background(), "English")
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if cached[1].Explanation != "Because." || cached[1].CorrectIndex != 0 {
		t.Fatalf("cached bank lost fields: %+v", cached[1])
	}

	if err := repo.Invalidate(context.Background(), "English"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.LoadQuestions(context.Background(), "English")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.count())
	}
}

func TestBankRepositoryDoesNotCacheFailures(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewBankRepository(newClient(mr), memory.NewStaticBankLoader(nil), time.Minute)
	if _, err := repo.LoadQuestions(context.Background(), "Physics"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("bank:Physics") {
		t.Fatalf("failure should not be cached")
	}
}

func TestBankRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	_ = mr.Set("bank:English", "not json")

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string][]domain.Question{"English": sampleQuestions()}),
	}
	repo := NewBankRepository(newClient(mr), loader, time.Minute)
	if _, err := repo.LoadQuestions(context.Background(), "English"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected fallback to loader")
	}
}

func TestHistoryStoreNewestFirst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewHistoryStore(newClient(mr), "")
	ctx := context.Background()
	for _, v := range []int{100, 200, 300} {
		if err := store.Append(ctx, domain.HistoryEntry{SubjectLabel: "English", Value: v}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].Value != 300 || entries[2].Value != 100 {
		t.Fatalf("unexpected order %+v", entries)
	}
	if !mr.Exists(DefaultHistoryKey) {
		t.Fatalf("expected default key %s", DefaultHistoryKey)
	}
}

type countingLoader struct {
	memory.BankLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.BankLoader.LoadQuestions(ctx, subjectID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "Opposite of hot?", Options: []string{"warm", "cold"}, CorrectIndex: 1},
		{Prompt: "Plural of mouse?", Options: []string{"mice", "mouses"}, CorrectIndex: 0, Explanation: "Because."},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
