package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/victorivanov/garrison/internal/audit"
	"github.com/victorivanov/garrison/internal/models"
)

// Store owns the current configuration snapshot. Reads go through a single
// atomic pointer and never touch the filesystem; reloads and mutations
// build a complete snapshot off to the side and install it in one swap.
type Store struct {
	path  string
	audit *audit.Logger

	current    atomic.Pointer[models.Snapshot]
	lastReload atomic.Int64 // unix nanos of the last successful install

	// writeMu serializes mutations that persist back to the config file.
	// Readers never contend with it.
	writeMu sync.Mutex
}

// NewStore loads the configuration at path and returns a store serving it.
// If the initial load fails the store serves an empty, permission-less
// snapshot so the caller keeps running fail-closed instead of crashing.
func NewStore(path string, auditLog *audit.Logger) *Store {
	s := &Store{path: path, audit: auditLog}
	if err := s.reload(false); err != nil {
		slog.Warn("initial config load failed, serving empty fail-closed snapshot",
			"path", path, "error", err)
		s.install(models.EmptySnapshot())
	}
	return s
}

// Path returns the configuration file path.
func (s *Store) Path() string { return s.path }

// Current returns the installed snapshot. Never blocks on I/O.
func (s *Store) Current() *models.Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return models.EmptySnapshot()
}

// LastReload returns the time of the last successful snapshot install.
func (s *Store) LastReload() time.Time {
	return time.Unix(0, s.lastReload.Load())
}

// Load parses the configuration file without installing it.
func (s *Store) Load() (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Reload re-parses the configuration and swaps in the new snapshot only if
// parsing succeeded. On failure the previously installed snapshot keeps
// serving and the error is returned.
func (s *Store) Reload() error {
	return s.reload(true)
}

func (s *Store) reload(audited bool) error {
	snap, err := s.Load()
	if err != nil {
		return err
	}
	s.install(snap)
	slog.Info("configuration loaded", "path", s.path, "groups", len(snap.Groups))
	if audited && snap.Settings.LogOperations && s.audit != nil {
		s.audit.Record("CONFIG_RELOAD", "system", "configuration reloaded")
	}
	return nil
}

func (s *Store) install(snap *models.Snapshot) {
	s.current.Store(snap)
	s.lastReload.Store(time.Now().UnixNano())
}

// Replace persists the given snapshot to the configuration file and then
// runs the normal reload path, so edits made through the engine and edits
// made externally share one "configuration changed" code path. The write is
// atomic: a temp file in the same directory renamed over the original.
func (s *Store) Replace(snap *models.Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write config: %w", err)
	}

	return s.reload(false)
}
