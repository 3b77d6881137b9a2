package postgres

import (
	"context"
	"database/sql"
	"time"

	"cbt-exam-runner/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB returns a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type historyRow struct {
	bun.BaseModel `bun:"table:exam_history"`

	ID           string    `bun:"id,pk"`
	SubjectLabel string    `bun:"subject_label,notnull"`
	Value        int       `bun:"value,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

// HistoryStore persists score records in the exam_history table.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	row := &historyRow{
		ID:           entry.ID,
		SubjectLabel: entry.SubjectLabel,
		Value:        entry.Value,
		CreatedAt:    entry.Timestamp,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	var rows []historyRow
	if err := s.db.NewSelect().Model(&rows).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.HistoryEntry{
			ID:           r.ID,
			SubjectLabel: r.SubjectLabel,
			Value:        r.Value,
			Timestamp:    r.CreatedAt,
		})
	}
	return entries, nil
}
