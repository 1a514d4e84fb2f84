// Package ledger keeps a SQLite history of scrobble submissions made by
// the loop.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger records every completed submission attempt.
type Ledger struct {
	db *sql.DB
}

// Entry is one submission attempt.
type Entry struct {
	ID        int64
	Username  string
	Artist    string
	Track     string
	Album     string
	Timestamp time.Time // play timestamp sent to Last.fm
	Accepted  bool
	ErrorCode int    // Last.fm error or ignored-message code, 0 when accepted
	Message   string // Last.fm error or ignored-message text
}

// Totals summarizes a user's attempts.
type Totals struct {
	Accepted int       `json:"accepted"`
	Rejected int       `json:"rejected"`
	Last     time.Time `json:"last"` // zero when nothing was recorded
}

// Open creates the ledger at dbPath, creating parent directories.
// ":memory:" gives a throwaway ledger.
func Open(dbPath string) (*Ledger, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases consistent and
	// serializes writers from overlapping ticks.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			accepted BOOLEAN NOT NULL DEFAULT 0,
			error_code INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_user_timestamp ON submissions(username, timestamp);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Record appends an entry and returns its id.
func (l *Ledger) Record(ctx context.Context, e Entry) (int64, error) {
	query := `
		INSERT INTO submissions (username, artist, track, album, timestamp, accepted, error_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := l.db.ExecContext(ctx, query,
		e.Username,
		e.Artist,
		e.Track,
		e.Album,
		e.Timestamp.Unix(),
		e.Accepted,
		e.ErrorCode,
		e.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// Recent returns the newest entries first. limit <= 0 means no limit.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, username, artist, track, album, timestamp, accepted, error_code, message
		FROM submissions
		ORDER BY id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var timestampUnix int64

		err := rows.Scan(
			&e.ID,
			&e.Username,
			&e.Artist,
			&e.Track,
			&e.Album,
			&timestampUnix,
			&e.Accepted,
			&e.ErrorCode,
			&e.Message,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		e.Timestamp = time.Unix(timestampUnix, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return entries, nil
}

// Totals counts accepted and rejected attempts for username.
func (l *Ledger) Totals(ctx context.Context, username string) (Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN accepted THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN accepted THEN 0 ELSE 1 END), 0),
			COALESCE(MAX(timestamp), 0)
		FROM submissions
		WHERE username = ?
	`

	var t Totals
	var last int64
	if err := l.db.QueryRowContext(ctx, query, username).Scan(&t.Accepted, &t.Rejected, &last); err != nil {
		return Totals{}, fmt.Errorf("failed to total submissions: %w", err)
	}
	if last > 0 {
		t.Last = time.Unix(last, 0)
	}

	return t, nil
}

// Cleanup removes entries whose play timestamp is older than maxAge.
func (l *Ledger) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	result, err := l.db.ExecContext(ctx, "DELETE FROM submissions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old submissions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of recorded entries.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}
