package cli

import (
	"context"
	"fmt"
	"os"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/config"
	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/infra/files"
	"cbt-exam-runner/internal/infra/postgres"
	redisstore "cbt-exam-runner/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type bankStore interface {
	StoreQuestions(ctx context.Context, subjectID string, questions []domain.Question) error
}

type bankCache interface {
	Invalidate(ctx context.Context, subjectID string) error
}

// NewImportCmd copies question bank files into the Postgres question_banks table.
func NewImportCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load question bank files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg, os.Stderr)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if dir == "" {
				dir = cfg.Bank.Dir
			}
			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			var cache bankCache
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache = redisstore.NewBankRepository(client, nil, config.TTLDuration(cfg.Bank.TTL, 0))
			}

			return importBanks(ctx, cfg.Exam.Subjects, files.NewBankLoader(dir), postgres.NewBankLoader(pool), cache, log)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of <subject>.json banks (defaults to bank.dir)")
	return cmd
}

// importBanks stores every subject's bank and drops any cached copy so running
// services pick up the new questions on their next load.
func importBanks(ctx context.Context, subjects []domain.Subject, src app.BankLoader, dst bankStore, cache bankCache, log zerolog.Logger) error {
	for _, sub := range subjects {
		questions, err := src.LoadQuestions(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", sub.ID, err)
		}
		if err := dst.StoreQuestions(ctx, sub.ID, questions); err != nil {
			return fmt.Errorf("%s: %w", sub.ID, err)
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, sub.ID); err != nil {
				log.Warn().Err(err).Str("subject", sub.ID).Msg("cached bank not invalidated")
			}
		}
		log.Info().Str("subject", sub.ID).Int("questions", len(questions)).Msg("bank imported")
	}
	return nil
}
