// Package state persists the daemon's small amount of durable state
// (spec.md §4.5: "persist last mode, counters") across restarts: the
// last active mode and running event/action counters. Every write is
// checksum-prefixed and atomic; a checksum mismatch on load is treated as
// corruption, not a fatal error -- callers get a fresh default state and
// a logged warning (spec.md §7 "StateCorrupt{path} -- fresh default
// used").
package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const checksumLen = sha256.Size // 32-byte content hash, per spec.md §4.5

// State is the daemon's persisted record.
type State struct {
	ActiveMode        string    `json:"active_mode"`
	EventsProcessed   uint64    `json:"events_processed"`
	ActionsExecuted   uint64    `json:"actions_executed"`
	ActionsFailed     uint64    `json:"actions_failed"`
	ConfigReloadCount uint64    `json:"config_reload_count"`
	SavedAt           time.Time `json:"saved_at"`
}

// Default returns the fresh state used on first run or after corruption.
func Default() State {
	return State{ActiveMode: ""}
}

// Store owns the on-disk state.json file and the in-memory counters the
// daemon mutates as it runs.
type Store struct {
	path string

	mu    sync.Mutex
	state State
}

// Open reads path, or returns a Default state if the file does not exist
// yet. A present file that cannot be read or fails its checksum is logged
// and replaced by a fresh Default state rather than failing startup.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	st, err := readState(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = Default()
			return s, nil
		}
		log.Printf("[State] %s: %v, using fresh default state", path, err)
		s.state = Default()
		return s, nil
	}
	s.state = st
	return s, nil
}

// Snapshot returns a copy of the current in-memory state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetActiveMode records the currently active mode.
func (s *Store) SetActiveMode(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveMode = name
}

// IncEventsProcessed bumps the processed-event counter.
func (s *Store) IncEventsProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.EventsProcessed++
}

// IncActionsExecuted bumps the successful-action counter.
func (s *Store) IncActionsExecuted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActionsExecuted++
}

// IncActionsFailed bumps the failed-action counter.
func (s *Store) IncActionsFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActionsFailed++
}

// IncConfigReloadCount bumps the count of successfully-applied config reloads.
func (s *Store) IncConfigReloadCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConfigReloadCount++
}

// Save writes the current state atomically: encode, write to
// state.json.tmp, fsync, rename over state.json (spec.md §4.5).
func (s *Store) Save() error {
	s.mu.Lock()
	snap := s.state
	snap.SavedAt = timeNow()
	s.mu.Unlock()

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	sum := sha256.Sum256(body)
	out := make([]byte, 0, checksumLen+len(body))
	out = append(out, sum[:]...)
	out = append(out, body...)

	dir := filepath.Dir(s.path)
	tmp := s.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", tmp, err)
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, s.path, err)
	}
	// Best-effort directory fsync so the rename itself is durable across
	// a crash, not just the file contents.
	if df, err := os.Open(dir); err == nil {
		_ = df.Sync()
		df.Close()
	}
	return nil
}

func timeNow() time.Time { return time.Now() }

// readState opens the canonical path with symlink-following disabled
// (spec.md §4.5 "opened with symlink-following disabled") and verifies
// its checksum prefix.
func readState(path string) (State, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return State{}, err
	}
	f := os.NewFile(uintptr(fd), path)
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return State{}, err
	}
	if len(data) < checksumLen {
		return State{}, fmt.Errorf("state file truncated")
	}
	want := data[:checksumLen]
	body := data[checksumLen:]
	got := sha256.Sum256(body)
	if !bytes.Equal(want, got[:]) {
		return State{}, fmt.Errorf("checksum mismatch: state file is corrupt")
	}

	var st State
	if err := json.Unmarshal(body, &st); err != nil {
		return State{}, fmt.Errorf("decoding state: %w", err)
	}
	return st, nil
}

// DefaultPath returns state.json next to the given config path.
func DefaultPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "state.json")
}
