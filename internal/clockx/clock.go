// Package clockx provides the wall clock and id source used by the auth core.
// Every timestamp comparison in the core goes through a Clock so tests can
// pin time.
package clockx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock, truncated to whole seconds because token
// timestamps are encoded as integer seconds.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fake is a settable clock for tests. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// NewFakeUnix returns a Fake pinned at the given unix second.
func NewFakeUnix(sec int64) *Fake {
	return NewFake(time.Unix(sec, 0).UTC())
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// NewUUID returns a random (version 4) uuid.
func NewUUID() uuid.UUID {
	return uuid.New()
}
