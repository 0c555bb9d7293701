// Package summary generates and stores the daily AI market summary.
package summary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/industryrunners/pulse/internal/core"
)

// Store persists market summaries in a local SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the summary database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening summary db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			summary_date TEXT NOT NULL UNIQUE,
			summary_text TEXT NOT NULL,
			generated_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrating summary schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the summary for its date.
func (s *Store) Save(ctx context.Context, sum core.MarketSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_summaries (summary_date, summary_text, generated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(summary_date) DO UPDATE SET
			summary_text = excluded.summary_text,
			generated_at = excluded.generated_at`,
		sum.SummaryDate, sum.Text, sum.GeneratedAt)
	if err != nil {
		return fmt.Errorf("saving summary for %s: %w", sum.SummaryDate, err)
	}
	return nil
}

// GetByDate returns the summary for one date, or nil when absent.
func (s *Store) GetByDate(ctx context.Context, date string) (*core.MarketSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, summary_date, summary_text, generated_at
		FROM market_summaries WHERE summary_date = ?`, date)

	var sum core.MarketSummary
	err := row.Scan(&sum.ID, &sum.SummaryDate, &sum.Text, &sum.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading summary for %s: %w", date, err)
	}
	return &sum, nil
}

// Latest returns up to limit summaries, newest date first.
func (s *Store) Latest(ctx context.Context, limit int) ([]core.MarketSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, summary_date, summary_text, generated_at
		FROM market_summaries ORDER BY summary_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	var out []core.MarketSummary
	for rows.Next() {
		var sum core.MarketSummary
		if err := rows.Scan(&sum.ID, &sum.SummaryDate, &sum.Text, &sum.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteBefore removes summaries dated strictly before cutoff
// (YYYY-MM-DD). Returns the number deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM market_summaries WHERE summary_date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning summaries: %w", err)
	}
	return res.RowsAffected()
}

// cutoffDate formats now minus keepDays as a date string.
func cutoffDate(now time.Time, keepDays int) string {
	return now.AddDate(0, 0, -keepDays).Format("2006-01-02")
}
