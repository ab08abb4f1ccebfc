// Package models defines the wire-level and persisted data types for fieldlink.
package models

import "time"

// SessionSnapshot is the write-through copy of the session's intent and
// active job. It is rewritten after every state transition so that the
// external background-location reporter never reads a snapshot more than
// one transition stale. It is never a source of truth for the agent itself.
//
// A single row (ID 1) is kept per database.
type SessionSnapshot struct {
	ID           uint `gorm:"primaryKey"`
	Online       bool
	ActiveJobID  *int64
	ActiveStatus string `gorm:"size:16"`
	UpdatedAt    time.Time
}
