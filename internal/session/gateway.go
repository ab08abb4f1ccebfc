package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jspencer/fieldlink/internal/api"
	"github.com/jspencer/fieldlink/internal/models"
)

// ErrJobUnavailable reports that an offer was gone by the time the worker
// acted on it: taken by someone else, expired, or withdrawn.
var ErrJobUnavailable = errors.New("session: job no longer available")

// SetOnline changes the worker's availability intent.
//
// Going online is gated on the backend acknowledging the ONLINE flag: if
// the push fails the intent stays offline and the error is returned, so
// the worker is never locally online while the backend still routes
// nothing their way. Going offline is local-first: the intent flips
// immediately, pending offers are discarded, and the OFFLINE push is
// best-effort.
func (a *Agent) SetOnline(ctx context.Context, online bool) error {
	if online {
		if err := a.backend.SetStatus(ctx, models.AvailabilityOnline); err != nil {
			return fmt.Errorf("session: go online: %w", err)
		}
		a.do(func() {
			a.store.SetOnline(true)
			a.emit(Event{Type: EventIntent, Online: true})
			a.cancelRetry()
			a.connect()
		})
		return nil
	}

	a.pushStatus(models.AvailabilityOffline)
	a.do(func() {
		a.store.SetOnline(false)
		a.cancelRetry()
		a.dialFailed = false
		if a.conn != nil {
			a.conn.Close()
			a.conn = nil
			a.inbound = nil
		}
		a.setState(StateDisconnected)
		if a.store.ClearPending() > 0 {
			a.alert.Stop()
		}
		a.emit(Event{Type: EventIntent, Online: false})
	})
	return nil
}

// AcceptJob claims a pending offer. On success the job becomes the active
// job and the worker's availability flips to WORKING. A stale offer (taken,
// expired, withdrawn) is removed locally and reported as ErrJobUnavailable;
// any other backend failure leaves the offer in place for a retry.
func (a *Agent) AcceptJob(ctx context.Context, jobID int64) error {
	a.alert.Stop()

	job, err := a.backend.Accept(ctx, jobID)
	if err != nil {
		if errors.Is(err, api.ErrJobTaken) {
			a.do(func() {
				if _, ok := a.store.RemovePending(jobID); ok {
					a.emit(Event{Type: EventOfferRemoved, JobID: jobID})
				}
			})
			return fmt.Errorf("session: accept job %d: %w", jobID, ErrJobUnavailable)
		}
		return fmt.Errorf("session: accept job %d: %w", jobID, err)
	}

	a.do(func() {
		if job == nil {
			if p, ok := a.store.PendingJob(jobID); ok {
				cp := *p
				job = &cp
			} else {
				job = &models.Job{ID: jobID}
			}
		}
		if !models.ActiveStatus(job.Status) {
			job.Status = models.StatusWorking
		}
		a.store.Activate(jobID, job)
		a.emitJob(EventJobAccepted, job)
	})
	a.pushStatus(models.AvailabilityWorking)
	return nil
}

// RejectJob declines a pending offer. The removal is optimistic: the offer
// disappears locally right away, and the backend reject plus the notifier
// cleanup run in the background. A reject that fails server-side costs
// nothing — the offer expires there on its own.
func (a *Agent) RejectJob(ctx context.Context, jobID int64) {
	a.alert.Stop()
	a.do(func() {
		if _, ok := a.store.RemovePending(jobID); ok {
			a.emit(Event{Type: EventOfferRemoved, JobID: jobID})
		}
	})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusPushTimeout)
		defer cancel()
		if err := a.backend.Reject(ctx, jobID); err != nil {
			log.Printf("session: reject job %d: %v", jobID, err)
		}
		if err := a.notifier.JobInvalid(ctx, jobID); err != nil {
			log.Printf("session: reject job %d: notifier: %v", jobID, err)
		}
	}()
}

// CompleteJob finishes the active job with the final price. The local
// state only changes once the backend accepts the completion; on failure
// the job stays active so the worker can retry.
func (a *Agent) CompleteJob(ctx context.Context, jobID int64, price float64) error {
	if err := a.backend.Complete(ctx, jobID, price); err != nil {
		return fmt.Errorf("session: complete job %d: %w", jobID, err)
	}
	var cleared bool
	a.do(func() {
		active := a.store.Active()
		if active == nil || active.ID != jobID {
			return
		}
		done := *active
		done.Status = models.StatusCompleted
		done.Price = price
		a.store.FinishActive(&done)
		a.emit(Event{Type: EventJobCleared, JobID: jobID})
		cleared = true
	})
	if cleared {
		a.pushStatus(models.AvailabilityOnline)
	}
	return nil
}

// CancelJob abandons the active job. Same confirmation-first shape as
// CompleteJob.
func (a *Agent) CancelJob(ctx context.Context, jobID int64, reason string) error {
	if err := a.backend.Cancel(ctx, jobID, reason); err != nil {
		return fmt.Errorf("session: cancel job %d: %w", jobID, err)
	}
	var cleared bool
	a.do(func() {
		active := a.store.Active()
		if active == nil || active.ID != jobID {
			return
		}
		done := *active
		done.Status = models.StatusCancelled
		a.store.FinishActive(&done)
		a.emit(Event{Type: EventJobCleared, JobID: jobID})
		cleared = true
	})
	if cleared {
		a.pushStatus(models.AvailabilityOnline)
	}
	return nil
}
