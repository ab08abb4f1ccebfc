package session

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/jspencer/fieldlink/internal/alert"
	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
)

// Router dispatches inbound gateway frames to the store. It runs on the
// agent's event loop; only the notifier calls leave the loop.
type Router struct {
	store    *Store
	alert    alert.Player
	notifier notify.Notifier
	push     func(status string)
	emit     func(Event)
	emitJob  func(EventType, *models.Job)
	out      io.Writer
}

// Handle routes one raw frame. Malformed frames and unknown frame types
// are dropped: the gateway adds frame types over time and an old client
// must keep working through them.
func (r *Router) Handle(ctx context.Context, raw json.RawMessage) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("session: router: malformed frame: %v", err)
		return
	}

	switch frame.Type {
	case frameNewJob:
		r.handleNewJob(ctx, frame.ServiceRequest)
	case frameJobStatus:
		r.handleStatusUpdate(ctx, frame.JobID, frame.Status)
	default:
		// Unknown frame type: ignore.
	}
}

func (r *Router) handleNewJob(ctx context.Context, job *models.Job) {
	if job == nil || job.ID == 0 {
		log.Printf("session: router: new_job frame without a job")
		return
	}
	job.Status = models.StatusPending

	// Redeliveries and duplicates stop here, before any sound or ping.
	if !r.store.AddPending(job) {
		return
	}

	r.alert.Play()

	cp := *job
	go func() {
		if err := r.notifier.IncomingJob(ctx, &cp); err != nil {
			log.Printf("session: router: notify job %d: %v", cp.ID, err)
		}
	}()

	r.emitJob(EventOffer, job)
}

// handleStatusUpdate reconciles a server-side job transition. The same id
// may need both halves: a job can never be active and pending at once, but
// the update is matched against each independently so a stale duplicate in
// either slot is cleared.
func (r *Router) handleStatusUpdate(ctx context.Context, jobID int64, status string) {
	if jobID == 0 || status == "" {
		log.Printf("session: router: job_status_update without id or status")
		return
	}

	if active := r.store.Active(); active != nil && active.ID == jobID {
		if models.TerminalStatus(status) {
			done := *active
			done.Status = status
			r.store.FinishActive(&done)
			r.push(models.AvailabilityOnline)
			r.emit(Event{Type: EventJobCleared, JobID: jobID})
		} else {
			r.store.UpdateActiveStatus(status)
			if j := r.store.Active(); j != nil {
				r.emitJob(EventJobUpdated, j)
			}
		}
	}

	if _, ok := r.store.RemovePending(jobID); ok {
		go func() {
			if err := r.notifier.JobInvalid(ctx, jobID); err != nil {
				log.Printf("session: router: invalidate job %d: %v", jobID, err)
			}
		}()
		if !r.store.HasPending() {
			r.alert.Stop()
		}
		r.emit(Event{Type: EventOfferRemoved, JobID: jobID})
	}
}
