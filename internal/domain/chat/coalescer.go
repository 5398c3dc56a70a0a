package chat

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Coalescer merges concurrent identical requests into one underlying call.
// It is not a cache: singleflight holds at most one entry per key, only
// while that call is in flight, and removes it the instant the call
// settles so a later identical request always dispatches fresh.
type Coalescer[T any] struct {
	group singleflight.Group
}

// NewCoalescer creates an empty coalescer.
func NewCoalescer[T any]() *Coalescer[T] {
	return &Coalescer[T]{}
}

// Dispatch runs fn for key, unless a call with the same key is already
// pending, in which case the caller waits for that call's result instead.
// The returned bool reports whether the result was shared from an existing
// in-flight call; it stays false for the caller whose fn actually ran. A
// follower whose ctx dies stops waiting, but the leader's call keeps
// running and still settles for everyone else attached to it.
func (c *Coalescer[T]) Dispatch(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	// DoChan runs the winning fn on its own goroutine, so leadership is
	// recorded atomically rather than through the closure variable.
	var leader atomic.Bool
	ch := c.group.DoChan(key, func() (any, error) {
		leader.Store(true)
		return fn(ctx)
	})

	select {
	case res := <-ch:
		val, _ := res.Val.(T)
		return val, !leader.Load(), res.Err
	case <-ctx.Done():
		var zero T
		return zero, !leader.Load(), ctx.Err()
	}
}
