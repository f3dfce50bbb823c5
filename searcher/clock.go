package searcher

import (
	"context"
	"time"
)

// StopCondition is polled between playouts.
type StopCondition interface {
	SecondsElapsed() float64
	ShouldStop() bool
}

// Clock stops a search once its budget is spent or its context is done.
// A zero budget only listens to the context.
type Clock struct {
	ctx    context.Context
	start  time.Time
	budget time.Duration
}

func NewClock(ctx context.Context, budget time.Duration) *Clock {
	return &Clock{ctx: ctx, start: time.Now(), budget: budget}
}

func (c *Clock) SecondsElapsed() float64 {
	return time.Since(c.start).Seconds()
}

func (c *Clock) ShouldStop() bool {
	if c.ctx.Err() != nil {
		return true
	}
	return c.budget > 0 && time.Since(c.start) >= c.budget
}
