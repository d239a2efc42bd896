package di

import (
	"sync/atomic"
	"time"
)

// ColdStart remembers when the process started and whether it served anything yet.
type ColdStart struct {
	startedAt time.Time
	served    atomic.Bool
}

// NewColdStart starts the clock.
func NewColdStart() *ColdStart {
	return &ColdStart{startedAt: time.Now()}
}

// Begin marks a request as served and reports whether it was the first one.
func (c *ColdStart) Begin() bool {
	return c.served.CompareAndSwap(false, true)
}

// Since returns the time elapsed since the process started.
func (c *ColdStart) Since() time.Duration {
	return time.Since(c.startedAt)
}
