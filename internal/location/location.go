// Package location tracks the device's most recent known position.
//
// The source is a plain mutable cell, not an event stream: the heartbeat
// reads it on every tick without blocking, and the OS-level location
// producer overwrites it whenever a fix arrives.
package location

import (
	"sync/atomic"
	"time"
)

// Position is a single location fix.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at"`
}

// Source holds the latest known position.
type Source struct {
	v atomic.Value // Position
}

// NewSource creates an empty Source. Current reports no fix until the
// first Update.
func NewSource() *Source {
	return &Source{}
}

// Update overwrites the latest position. Safe from any goroutine.
func (s *Source) Update(p Position) {
	if p.At.IsZero() {
		p.At = time.Now()
	}
	s.v.Store(p)
}

// Current returns the latest position and whether one has been recorded.
// Never blocks.
func (s *Source) Current() (Position, bool) {
	p, ok := s.v.Load().(Position)
	return p, ok
}
