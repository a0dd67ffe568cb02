package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.cooldowns.snapshot.json (periodic snapshot)
//   - <prefix>.cooldowns.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot. The in-memory
// map is only updated after the journal append succeeded, so a storage
// failure surfaces as an error instead of a silently lost record.
type fileStore struct {
	log    logx.Logger
	window time.Duration

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	lastSent     map[int64]int64 // unix milli

	writes int
}

type cooldownRecord struct {
	UserID     int64 `json:"user_id"`
	LastSentAt int64 `json:"last_sent_at"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".cooldowns.snapshot.json"
	journalPath := prefix + ".cooldowns.journal.jsonl"

	lastSent := map[int64]int64{}
	_ = loadSnapshot(snapPath, lastSent)
	_ = replayJournal(journalPath, lastSent)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		window:       cfg.Window,
		snapshotPath: snapPath,
		journalFile:  jf,
		lastSent:     lastSent,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) ShouldSend(ctx context.Context, userID int64, now time.Time) (bool, error) {
	_ = ctx
	ms := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return false, errors.New("cooldown journal closed")
	}

	if last, ok := s.lastSent[userID]; ok && ms-last < s.window.Milliseconds() {
		return false, nil
	}

	// Persist first; the map only reflects durable state.
	enc := json.NewEncoder(s.journalFile)
	if err := enc.Encode(cooldownRecord{UserID: userID, LastSentAt: ms}); err != nil {
		return false, err
	}
	s.lastSent[userID] = ms

	s.writes++
	if s.writes%1000 == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("cooldown compact failed", logx.Err(err))
		}
	}
	return true, nil
}

func (s *fileStore) LastSent(ctx context.Context, userID int64) (time.Time, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.lastSent[userID]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

func (s *fileStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	ms := cutoff.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return 0, errors.New("cooldown journal closed")
	}

	var removed int64
	for id, last := range s.lastSent {
		if last < ms {
			delete(s.lastSent, id)
			removed++
		}
	}
	if removed > 0 {
		if err := s.compactLocked(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.lastSent); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[int64]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[int64]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[int64]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r cooldownRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		out[r.UserID] = r.LastSentAt
	}
	return sc.Err()
}
