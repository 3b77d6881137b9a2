package sqlite

import (
	"context"
	"database/sql"
	"time"

	"cbt-exam-runner/internal/domain"
	_ "modernc.org/sqlite" // driver: sqlite
)

// DefaultDSN keeps history next to the working directory.
const DefaultDSN = "file:cbt-history.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

const schema = `
CREATE TABLE IF NOT EXISTS exam_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  subject_label TEXT NOT NULL,
  value INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
`

// HistoryStore keeps score records in a local SQLite file.
type HistoryStore struct {
	db *sql.DB
}

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*HistoryStore, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error { return s.db.Close() }

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_history (id, subject_label, value, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.SubjectLabel, entry.Value, entry.Timestamp.UnixMilli())
	return err
}

// List returns records in reverse insertion order.
func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_label, value, created_at FROM exam_history ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e  domain.HistoryEntry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.SubjectLabel, &e.Value, &ms); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
