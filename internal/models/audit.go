package models

import "time"

// AuditEntry records one administrative operation. Entries are append-only;
// the engine never mutates or deletes them.
type AuditEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Operation   string    `json:"operation"`
	OperatorID  string    `json:"operator_id"`
	Description string    `json:"description"`
}
