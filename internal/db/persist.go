package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jspencer/fieldlink/internal/models"
)

// snapshotRow is the fixed primary key of the single SessionSnapshot row.
const snapshotRow = 1

// Store persists session snapshots and job history rows. It implements
// the session package's Persister interface.
type Store struct {
	g *gorm.DB
}

// NewStore creates a Store backed by an open GORM connection.
func NewStore(g *gorm.DB) *Store {
	return &Store{g: g}
}

// SaveSnapshot rewrites the single write-through snapshot row with the
// session's current intent and active job. The background location
// reporter reads this row while the agent is suspended.
func (s *Store) SaveSnapshot(online bool, active *models.Job) error {
	snap := models.SessionSnapshot{
		ID:        snapshotRow,
		Online:    online,
		UpdatedAt: time.Now(),
	}
	if active != nil {
		id := active.ID
		snap.ActiveJobID = &id
		snap.ActiveStatus = active.Status
	}
	if err := s.g.Clauses(clause.OnConflict{UpdateAll: true}).Create(&snap).Error; err != nil {
		return fmt.Errorf("db: save snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the last-saved snapshot, or nil if none has been written.
func (s *Store) Snapshot() (*models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	err := s.g.First(&snap, snapshotRow).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: load snapshot: %w", err)
	}
	return &snap, nil
}

// RecordJob upserts a job history row. Called when a job reaches a
// terminal status so the digest can report on it later.
func (s *Store) RecordJob(job *models.Job) error {
	row := *job
	row.UpdatedAt = time.Now()
	if err := s.g.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("db: record job %d: %w", job.ID, err)
	}
	return nil
}

// FinishedJobsSince returns jobs that reached a terminal status after the
// given time, oldest first.
func (s *Store) FinishedJobsSince(since time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := s.g.
		Where("status IN ? AND updated_at >= ?",
			[]string{models.StatusCompleted, models.StatusCancelled, models.StatusExpired}, since).
		Order("updated_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("db: finished jobs: %w", err)
	}
	return jobs, nil
}
