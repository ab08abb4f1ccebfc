package session

import (
	"time"

	"github.com/jspencer/fieldlink/internal/models"
)

// EventType identifies a session event published to subscribers.
type EventType string

const (
	EventConnection   EventType = "connection_state"
	EventIntent       EventType = "intent"
	EventOffer        EventType = "job_offer"
	EventOfferRemoved EventType = "offer_removed"
	EventJobAccepted  EventType = "job_accepted"
	EventJobUpdated   EventType = "job_updated"
	EventJobCleared   EventType = "job_cleared"
)

// Event is a session state transition, as observed by external consumers
// (the observe API streams these over SSE).
type Event struct {
	Type   EventType   `json:"type"`
	State  ConnState   `json:"state,omitempty"`
	Online bool        `json:"online,omitempty"`
	JobID  int64       `json:"job_id,omitempty"`
	Job    *models.Job `json:"job,omitempty"`
	Time   time.Time   `json:"time"`
}

// Subscribe registers an event listener. The returned cancel function
// unregisters it and closes the channel. Slow listeners drop events
// rather than stalling the session.
func (a *Agent) Subscribe() (<-chan Event, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	id := a.subSeq
	a.subSeq++
	ch := make(chan Event, 32)
	a.subs[id] = ch

	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

// emit publishes an event to all subscribers, never blocking.
func (a *Agent) emit(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// emitJob publishes an event carrying a copy of job, so subscribers never
// share loop-owned memory.
func (a *Agent) emitJob(t EventType, job *models.Job) {
	cp := *job
	a.emit(Event{Type: t, JobID: cp.ID, Job: &cp})
}

// closeSubs closes every subscriber channel at shutdown.
func (a *Agent) closeSubs() {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}
