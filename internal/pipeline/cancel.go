// Package pipeline holds the small shared primitives of the ingestion
// pipeline: the cooperative cancellation token passed by reference into
// every async boundary.
package pipeline

import (
	"context"
	"sync/atomic"
)

// Canceller is a cooperative cancellation signal shared across pipeline
// stages. It is checked at stage boundaries, never preempted mid-operation;
// stages flush pending work before honoring it.
type Canceller struct {
	flag atomic.Bool
}

// NewCanceller creates an untripped Canceller.
func NewCanceller() *Canceller {
	return &Canceller{}
}

// Cancel trips the signal. Safe to call from any goroutine, repeatedly.
func (c *Canceller) Cancel() {
	if c == nil {
		return
	}
	c.flag.Store(true)
}

// Cancelled reports whether the signal has been tripped. A nil Canceller
// never cancels, so callers that don't care can pass nil.
func (c *Canceller) Cancelled() bool {
	return c != nil && c.flag.Load()
}

// LinkContext trips the canceller when ctx is done (e.g. a disconnected
// client). The goroutine exits with the context.
func (c *Canceller) LinkContext(ctx context.Context) {
	if c == nil {
		return
	}
	go func() {
		<-ctx.Done()
		c.Cancel()
	}()
}
