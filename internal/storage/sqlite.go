package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cooldowns (
	user_id      INTEGER PRIMARY KEY,
	last_sent_at INTEGER NOT NULL
);
`

type sqliteStore struct {
	db     *sql.DB
	log    logx.Logger
	window time.Duration
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; this also serializes ShouldSend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log, window: cfg.Window}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ShouldSend is a single guarded upsert: the insert wins for unseen users,
// the conflict update only fires once the window has elapsed. RowsAffected
// therefore decides permit/deny atomically.
func (s *sqliteStore) ShouldSend(ctx context.Context, userID int64, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cooldowns(user_id, last_sent_at) VALUES(?,?)
		 ON CONFLICT(user_id) DO UPDATE SET last_sent_at = excluded.last_sent_at
		 WHERE excluded.last_sent_at - cooldowns.last_sent_at >= ?`,
		userID, now.UnixMilli(), s.window.Milliseconds(),
	)
	if err != nil {
		return false, fmt.Errorf("cooldown upsert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cooldown upsert: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteStore) LastSent(ctx context.Context, userID int64) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_sent_at FROM cooldowns WHERE user_id = ?`, userID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *sqliteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cooldowns WHERE last_sent_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
