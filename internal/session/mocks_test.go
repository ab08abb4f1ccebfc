package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/transport"
)

// mockConn is an in-memory transport.Conn. Frames pushed through deliver
// land on the agent's inbound channel; Close simulates the server dropping
// the connection.
type mockConn struct {
	in chan json.RawMessage

	mu     sync.Mutex
	sent   []any
	closed bool
}

func newMockConn() *mockConn {
	return &mockConn{in: make(chan json.RawMessage)}
}

func (c *mockConn) Inbound() <-chan json.RawMessage { return c.in }

func (c *mockConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	return nil
}

func (c *mockConn) deliver(frame string) {
	c.in <- json.RawMessage(frame)
}

func (c *mockConn) sentFrames() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// mockDialer hands out mockConns, or fails while err is set.
type mockDialer struct {
	mu       sync.Mutex
	err      error
	attempts int
	times    []time.Time
	conns    []*mockConn
}

func (d *mockDialer) Dial(ctx context.Context, url, token string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	d.times = append(d.times, time.Now())
	if d.err != nil {
		return nil, d.err
	}
	c := newMockConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *mockDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *mockDialer) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *mockDialer) attemptTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.times))
	copy(out, d.times)
	return out
}

func (d *mockDialer) lastConn() *mockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// mockBackend implements Backend with primed responses.
type mockBackend struct {
	mu sync.Mutex

	token    string
	tokenErr error

	current    *models.Job
	currentErr error

	statuses  []string
	statusErr error

	acceptJob *models.Job
	acceptErr error

	rejects   []int64
	rejectErr error

	completes   []int64
	completeErr error

	cancels   []int64
	cancelErr error
}

func newMockBackend() *mockBackend {
	return &mockBackend{token: "rt-token"}
}

func (b *mockBackend) RealtimeToken(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.tokenErr
}

func (b *mockBackend) CurrentJob(context.Context) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentErr != nil {
		return nil, b.currentErr
	}
	if b.current == nil {
		return nil, nil
	}
	cp := *b.current
	return &cp, nil
}

func (b *mockBackend) SetStatus(_ context.Context, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusErr != nil {
		return b.statusErr
	}
	b.statuses = append(b.statuses, status)
	return nil
}

func (b *mockBackend) Accept(_ context.Context, jobID int64) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acceptErr != nil {
		return nil, b.acceptErr
	}
	if b.acceptJob == nil {
		return nil, nil
	}
	cp := *b.acceptJob
	return &cp, nil
}

func (b *mockBackend) Reject(_ context.Context, jobID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectErr != nil {
		return b.rejectErr
	}
	b.rejects = append(b.rejects, jobID)
	return nil
}

func (b *mockBackend) Complete(_ context.Context, jobID int64, price float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completeErr != nil {
		return b.completeErr
	}
	b.completes = append(b.completes, jobID)
	return nil
}

func (b *mockBackend) Cancel(_ context.Context, jobID int64, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancels = append(b.cancels, jobID)
	return nil
}

func (b *mockBackend) pushedStatuses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.statuses))
	copy(out, b.statuses)
	return out
}

func (b *mockBackend) lastStatus() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.statuses) == 0 {
		return ""
	}
	return b.statuses[len(b.statuses)-1]
}

func (b *mockBackend) rejectedIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int64, len(b.rejects))
	copy(out, b.rejects)
	return out
}

// mockPlayer counts alert sound starts and stops.
type mockPlayer struct {
	mu    sync.Mutex
	plays int
	stops int
}

func (p *mockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
}

func (p *mockPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *mockPlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func (p *mockPlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}
