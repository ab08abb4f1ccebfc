package session

import (
	"log"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/jspencer/fieldlink/internal/models"
)

// Persister receives write-through copies of the session state. The db
// package provides the production implementation; a nil Persister is
// valid and disables persistence.
type Persister interface {
	// SaveSnapshot rewrites the persisted intent/active-job snapshot.
	SaveSnapshot(online bool, active *models.Job) error
	// RecordJob stores a job that reached a terminal status.
	RecordJob(job *models.Job) error
}

// Store holds the canonical in-process session state: the online/offline
// intent, the single active job, and the ordered pending offers.
//
// Store has no internal locking. All mutation is funneled through the
// agent's event loop; nothing else may write.
type Store struct {
	online  bool
	active  *models.Job
	pending []*models.Job
	seen    *cache.Cache
	persist Persister
}

// NewStore creates an empty Store.
func NewStore(p Persister) *Store {
	return &Store{
		// Seen job ids are kept for the lifetime of the session: redelivery
		// can arrive long after an offer was resolved, so nothing is evicted.
		seen:    cache.New(cache.NoExpiration, 0),
		persist: p,
	}
}

func seenKey(jobID int64) string {
	return strconv.FormatInt(jobID, 10)
}

// Online reports the worker's availability intent.
func (s *Store) Online() bool {
	return s.online
}

// SetOnline records the availability intent and re-syncs the snapshot.
func (s *Store) SetOnline(v bool) {
	s.online = v
	s.saveSnapshot()
}

// Active returns the job in the active slot, or nil. The pointer is owned
// by the store; callers off the event loop must copy.
func (s *Store) Active() *models.Job {
	return s.active
}

// SetActive installs a job in the active slot directly (initial sync).
func (s *Store) SetActive(job *models.Job) {
	s.seen.Set(seenKey(job.ID), struct{}{}, cache.NoExpiration)
	s.active = job
	s.saveSnapshot()
}

// UpdateActiveStatus mutates the active job's status in place. Identity
// never changes. No-op when the active slot is empty.
func (s *Store) UpdateActiveStatus(status string) {
	if s.active == nil {
		return
	}
	s.active.Status = status
	s.saveSnapshot()
}

// Activate moves a job from the pending set into the active slot as one
// logical step: the offer leaves pending and the job becomes active, never
// both, never neither.
func (s *Store) Activate(jobID int64, job *models.Job) {
	s.removePending(jobID)
	s.seen.Set(seenKey(job.ID), struct{}{}, cache.NoExpiration)
	s.active = job
	s.saveSnapshot()
}

// FinishActive clears the active slot and records the finished job in the
// history. done carries the terminal status.
func (s *Store) FinishActive(done *models.Job) {
	s.active = nil
	if s.persist != nil {
		if err := s.persist.RecordJob(done); err != nil {
			log.Printf("session: store: %v", err)
		}
	}
	s.saveSnapshot()
}

// AddPending appends a newly offered job, marking its id as seen. Returns
// false when the id was already seen this session (redelivered frame, or a
// job already pending or active) — the caller must then skip all side
// effects.
func (s *Store) AddPending(job *models.Job) bool {
	key := seenKey(job.ID)
	if _, dup := s.seen.Get(key); dup {
		return false
	}
	s.seen.Set(key, struct{}{}, cache.NoExpiration)
	s.pending = append(s.pending, job)
	return true
}

// PendingJob returns the pending job with the given id, if tracked.
func (s *Store) PendingJob(jobID int64) (*models.Job, bool) {
	for _, j := range s.pending {
		if j.ID == jobID {
			return j, true
		}
	}
	return nil, false
}

// RemovePending drops a pending offer by id, preserving the order of the
// rest. Returns the removed job, or false if the id was not pending.
func (s *Store) RemovePending(jobID int64) (*models.Job, bool) {
	return s.removePending(jobID)
}

func (s *Store) removePending(jobID int64) (*models.Job, bool) {
	for i, j := range s.pending {
		if j.ID == jobID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return j, true
		}
	}
	return nil, false
}

// ClearPending drops all pending offers and returns how many were dropped.
// The seen-set is untouched: dropped ids stay deduplicated.
func (s *Store) ClearPending() int {
	n := len(s.pending)
	s.pending = nil
	return n
}

// HasPending reports whether any offers are pending.
func (s *Store) HasPending() bool {
	return len(s.pending) > 0
}

// Pending returns a copy of the pending offers in arrival order.
func (s *Store) Pending() []models.Job {
	out := make([]models.Job, 0, len(s.pending))
	for _, j := range s.pending {
		out = append(out, *j)
	}
	return out
}

// saveSnapshot re-syncs the persisted write-through snapshot. Failures are
// logged: the snapshot is advisory state for the background location
// reporter, never a gate on the session itself.
func (s *Store) saveSnapshot() {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveSnapshot(s.online, s.active); err != nil {
		log.Printf("session: store: %v", err)
	}
}
