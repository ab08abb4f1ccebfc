// Package session implements the realtime dispatch session: one agent per
// worker, holding the availability intent, the active job, the pending
// offers, and the gateway connection that feeds them.
//
// Concurrency model: the agent is an actor. Inbound frames, heartbeat
// ticks, connect results, and the reconciliation steps of REST actions are
// all serialized onto a single event loop, so the Store needs no locks.
// The only code running off the loop is the REST calls themselves and the
// dial sequence, both of which post their results back to the loop.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jspencer/fieldlink/internal/alert"
	"github.com/jspencer/fieldlink/internal/location"
	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
	"github.com/jspencer/fieldlink/internal/transport"
)

// Default timing parameters. The retry delays are fixed, not exponential:
// the gateway is expected back quickly and a worker standing by a broken
// car should not wait minutes for a backed-off retry.
const (
	DefaultHeartbeatInterval = 2500 * time.Millisecond
	DefaultAuthRetryDelay    = 5 * time.Second
	DefaultCloseRetryDelay   = 3 * time.Second
	DefaultDialTimeout       = 15 * time.Second

	// statusPushTimeout bounds the fire-and-forget availability pushes.
	statusPushTimeout = 15 * time.Second
)

// Backend is the slice of the dispatch REST API the session depends on.
// api.Client implements it; tests substitute mocks.
type Backend interface {
	RealtimeToken(ctx context.Context) (string, error)
	CurrentJob(ctx context.Context) (*models.Job, error)
	SetStatus(ctx context.Context, status string) error
	Accept(ctx context.Context, jobID int64) (*models.Job, error)
	Reject(ctx context.Context, jobID int64) error
	Complete(ctx context.Context, jobID int64, price float64) error
	Cancel(ctx context.Context, jobID int64, reason string) error
}

// ConnState is the transport connection state, owned by the agent's
// connection manager. Distinct from the worker's intent: intent is what
// the worker wants, ConnState is what the transport is.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// connResult carries the outcome of a dial sequence back onto the loop.
type connResult struct {
	conn transport.Conn
	err  error
}

// Agent runs one worker's realtime session.
type Agent struct {
	backend  Backend
	dialer   transport.Dialer
	store    *Store
	router   *Router
	alert    alert.Player
	notifier notify.Notifier
	location *location.Source
	out      io.Writer

	wsURL           string
	heartbeatEvery  time.Duration
	authRetryDelay  time.Duration
	closeRetryDelay time.Duration
	dialTimeout     time.Duration

	commands    chan func()
	connResults chan connResult
	done        chan struct{}

	// Loop-owned connection state. Never touched off the loop.
	state              ConnState
	connecting         bool
	dialFailed         bool
	conn               transport.Conn
	inbound            <-chan json.RawMessage
	retryTimer         *time.Timer
	disconnectNotified bool

	subMu  sync.Mutex
	subs   map[int]chan Event
	subSeq int
}

// Opts holds parameters for creating an Agent. Backend, Dialer and URL are
// required; everything else has a default or degrades to a no-op.
type Opts struct {
	Backend   Backend
	Dialer    transport.Dialer
	URL       string
	Persister Persister        // optional; nil disables persistence
	Notifier  notify.Notifier  // optional; defaults to notify.Noop
	Alert     alert.Player     // optional; defaults to alert.Noop
	Location  *location.Source // optional; created when nil

	HeartbeatInterval time.Duration
	AuthRetryDelay    time.Duration
	CloseRetryDelay   time.Duration
	DialTimeout       time.Duration

	Out io.Writer // defaults to os.Stdout
}

// NewAgent creates an Agent. Run must be called before any other method.
func NewAgent(opts Opts) (*Agent, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("session: backend is required")
	}
	if opts.Dialer == nil {
		return nil, fmt.Errorf("session: dialer is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("session: gateway URL is required")
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	player := opts.Alert
	if player == nil {
		player = alert.Noop{}
	}
	loc := opts.Location
	if loc == nil {
		loc = location.NewSource()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	a := &Agent{
		backend:         opts.Backend,
		dialer:          opts.Dialer,
		store:           NewStore(opts.Persister),
		alert:           player,
		notifier:        notifier,
		location:        loc,
		out:             out,
		wsURL:           opts.URL,
		heartbeatEvery:  defaultDuration(opts.HeartbeatInterval, DefaultHeartbeatInterval),
		authRetryDelay:  defaultDuration(opts.AuthRetryDelay, DefaultAuthRetryDelay),
		closeRetryDelay: defaultDuration(opts.CloseRetryDelay, DefaultCloseRetryDelay),
		dialTimeout:     defaultDuration(opts.DialTimeout, DefaultDialTimeout),
		commands:        make(chan func(), 64),
		connResults:     make(chan connResult, 4),
		done:            make(chan struct{}),
		state:           StateDisconnected,
		subs:            make(map[int]chan Event),
	}
	a.router = &Router{
		store:    a.store,
		alert:    player,
		notifier: notifier,
		push:     a.pushStatus,
		emit:     a.emit,
		emitJob:  a.emitJob,
		out:      out,
	}
	return a, nil
}

func defaultDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Run drives the event loop until ctx is cancelled. It performs the
// initial sync against the backend, then serializes every state mutation:
// commands from the gateway methods, inbound frames, connect results, and
// heartbeat ticks.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)

	hb := time.NewTicker(a.heartbeatEvery)
	defer hb.Stop()

	go a.initialSync(ctx)

	fmt.Fprintf(a.out, "fieldlink session started\n")

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			fmt.Fprintf(a.out, "fieldlink session stopped\n")
			return nil

		case fn := <-a.commands:
			fn()

		case raw, ok := <-a.inbound:
			if !ok {
				a.transportClosed()
				continue
			}
			a.router.Handle(ctx, raw)

		case res := <-a.connResults:
			a.handleConnResult(res)

		case <-hb.C:
			a.heartbeat()
		}
	}
}

// do runs fn on the event loop and waits for it to finish. Returns false
// when the loop has already stopped.
func (a *Agent) do(fn func()) bool {
	ran := make(chan struct{})
	select {
	case a.commands <- func() { fn(); close(ran) }:
	case <-a.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-a.done:
		return false
	}
}

// shutdown tears down loop-owned resources when Run exits.
func (a *Agent) shutdown() {
	a.cancelRetry()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
		a.inbound = nil
	}
	a.state = StateDisconnected
	a.closeSubs()
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	State   ConnState    `json:"state"`
	Online  bool         `json:"online"`
	Active  *models.Job  `json:"active_job,omitempty"`
	Pending []models.Job `json:"pending_jobs"`
}

// Status returns a consistent snapshot of the session.
func (a *Agent) Status() Snapshot {
	snap := Snapshot{State: StateDisconnected, Pending: []models.Job{}}
	a.do(func() {
		snap.State = a.state
		snap.Online = a.store.Online()
		if j := a.store.Active(); j != nil {
			cp := *j
			snap.Active = &cp
		}
		snap.Pending = a.store.Pending()
	})
	return snap
}

// initialSync restores state left over from a previous session: a pending
// offer is re-seeded, an active job puts the worker straight back online,
// and anything else corrects the backend's availability flag to OFFLINE.
// Sync failures default to offline — never to silently-online.
func (a *Agent) initialSync(ctx context.Context) {
	job, err := a.backend.CurrentJob(ctx)
	if err != nil {
		log.Printf("session: initial sync: %v (defaulting to offline)", err)
		a.do(func() { a.store.SetOnline(false) })
		return
	}

	switch {
	case job == nil:
		a.do(func() { a.store.SetOnline(false) })
		if err := a.backend.SetStatus(ctx, models.AvailabilityOffline); err != nil {
			log.Printf("session: initial sync: push OFFLINE: %v", err)
		}

	case job.Status == models.StatusPending:
		a.do(func() {
			if a.store.AddPending(job) {
				a.emitJob(EventOffer, job)
			}
		})

	case models.ActiveStatus(job.Status):
		a.do(func() {
			a.store.SetActive(job)
			a.store.SetOnline(true)
			a.emitJob(EventJobAccepted, job)
			a.emit(Event{Type: EventIntent, Online: true})
			a.connect()
		})

	default:
		// Terminal leftover: nothing to restore.
		a.do(func() { a.store.SetOnline(false) })
	}
}

// pushStatus reports availability to the backend off the loop. Failure is
// logged only: the push is an eventual-consistency signal, not a gate.
func (a *Agent) pushStatus(status string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusPushTimeout)
		defer cancel()
		if err := a.backend.SetStatus(ctx, status); err != nil {
			log.Printf("session: push %s: %v", status, err)
		}
	}()
}
