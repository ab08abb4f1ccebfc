package notify

import (
	"context"
	"sync"

	"github.com/jspencer/fieldlink/internal/models"
)

// Mock implements Notifier for tests. It records every call and can be
// primed to fail.
type Mock struct {
	mu sync.Mutex

	Incoming      []models.Job
	Invalidated   []int64
	Disconnects   int
	Clears        int
	Digests       []Summary
	Err           error // returned by every call when set
}

// NewMock creates a Mock.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) IncomingJob(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Incoming = append(m.Incoming, *job)
	return nil
}

func (m *Mock) JobInvalid(_ context.Context, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Invalidated = append(m.Invalidated, jobID)
	return nil
}

func (m *Mock) Disconnected(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Disconnects++
	return nil
}

func (m *Mock) ClearDisconnected(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Clears++
	return nil
}

func (m *Mock) Digest(_ context.Context, d Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Digests = append(m.Digests, d)
	return nil
}

// IncomingCount returns how many offers were announced.
func (m *Mock) IncomingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Incoming)
}

// DisconnectCount returns how many disconnect warnings were raised.
func (m *Mock) DisconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Disconnects
}

// InvalidatedCount returns how many offers were invalidated.
func (m *Mock) InvalidatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Invalidated)
}

// ClearCount returns how many disconnect warnings were withdrawn.
func (m *Mock) ClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Clears
}
