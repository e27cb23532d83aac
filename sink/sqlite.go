package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/njacques/newsclip/article"
)

// SQLiteSink archives articles in a local database, keyed by (title, link) so
// re-running a scrape upserts instead of piling up rows.
type SQLiteSink struct {
	db *sql.DB
}

var _ Sink = (*SQLiteSink)(nil)

// NewSQLiteSink opens (or creates) the database at the given path.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the articles table if it doesn't exist.
func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id     TEXT NOT NULL,
		source TEXT NOT NULL,
		title  TEXT NOT NULL,
		link   TEXT NOT NULL,
		date   TEXT NOT NULL,
		PRIMARY KEY (title, link)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Name identifies the sink in run reports.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write upserts every article in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, articles []article.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := "INSERT OR REPLACE INTO articles (id, source, title, link, date) VALUES (?, ?, ?, ?, ?)"
	for _, a := range articles {
		if _, err := tx.ExecContext(ctx, query,
			a.ID.String(), a.Source, a.Title, a.Link, a.Date.Format("2006-01-02")); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to store article: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit articles: %w", err)
	}
	return nil
}

// Count returns the number of archived articles.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}
