package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/config"
	"cbt-exam-runner/internal/infra/files"
	"cbt-exam-runner/internal/infra/httpbank"
	"cbt-exam-runner/internal/infra/memory"
	"cbt-exam-runner/internal/infra/postgres"
	redisstore "cbt-exam-runner/internal/infra/redis"
	"cbt-exam-runner/internal/infra/sqlite"
	"cbt-exam-runner/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// loadConfig reads the YAML file. A missing file at the default location
// falls back to built-in defaults so the binary works out of the box.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
		return config.FromEnv()
	}
	return cfg, err
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	return logger.Setup(cfg.Log.Level, cfg.Log.Format, out)
}

// deps holds the infrastructure chosen by config and how to release it.
type deps struct {
	loader  app.BankLoader
	history app.HistoryStore
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, log zerolog.Logger) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Bank.Source == "postgres" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
	}

	var source memory.BankLoader
	switch cfg.Bank.Source {
	case "http":
		source = httpbank.NewBankLoader(cfg.Bank.BaseURL, config.TTLDuration(cfg.Bank.Timeout, 10*time.Second))
	case "postgres":
		source = postgres.NewBankLoader(pool)
	default:
		source = files.NewBankLoader(cfg.Bank.Dir)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if redisClient != nil {
		d.loader = redisstore.NewBankRepository(redisClient, source, bankTTL)
	} else {
		d.loader = memory.NewBankRepository(source, bankTTL)
	}

	switch cfg.History.Driver {
	case "file":
		store, err := files.NewHistoryStore(cfg.History.Path)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.history = store
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.History.DSN)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		d.history = store
	case "redis":
		d.history = redisstore.NewHistoryStore(redisClient, cfg.History.Key)
	case "postgres":
		db := postgres.OpenDB(cfg.Postgres.URL)
		d.closers = append(d.closers, func() { _ = db.Close() })
		d.history = postgres.NewHistoryStore(db)
	default:
		d.history = memory.NewHistoryStore()
	}

	log.Debug().
		Str("bank_source", cfg.Bank.Source).
		Bool("redis_cache", redisClient != nil).
		Str("history_driver", cfg.History.Driver).
		Msg("infrastructure ready")
	return d, nil
}

func newExamService(cfg config.Config, d *deps, log zerolog.Logger) (*app.ExamService, error) {
	return app.NewExamService(cfg.Exam.Subjects, d.loader, d.history, app.Options{
		RequiredCount: cfg.Exam.RequiredCount,
		MaxScale:      cfg.Exam.MaxScale,
		Duration:      config.TTLDuration(cfg.Exam.Duration, app.DefaultDuration),
		TickInterval:  config.TTLDuration(cfg.Exam.Tick, app.DefaultTickInterval),
		LoadTimeout:   config.TTLDuration(cfg.Exam.LoadTimeout, 0),
		Logger:        &log,
	})
}

// openMigrationDB is shared by migrate and start.
func openMigrationDB(cfg config.Config) (*bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	return postgres.OpenDB(cfg.Postgres.URL), nil
}
