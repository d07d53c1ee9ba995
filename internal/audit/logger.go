// Package audit appends administrative operations to a line-delimited JSON
// log. Entries are append-only; nothing in the engine rewrites or removes
// them.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victorivanov/garrison/internal/models"
)

// Logger writes audit entries to a single file. A write failure is logged
// and swallowed: recording an operation must never fail the operation
// itself.
type Logger struct {
	mu   sync.Mutex
	path string
}

// NewLogger creates a Logger writing to path. The parent directory is
// created on first use.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Record appends one entry. Safe for concurrent use.
func (l *Logger) Record(operation, operatorID, description string) {
	entry := models.AuditEntry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Operation:   operation,
		OperatorID:  operatorID,
		Description: description,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		slog.Error("failed to marshal audit entry", "operation", operation, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		slog.Error("failed to create audit log directory", "path", l.path, "error", err)
		return
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("failed to open audit log", "path", l.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Error("failed to append audit entry", "path", l.path, "error", err)
	}
}
