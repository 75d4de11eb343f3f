// Package poll runs cancelable recurring recomputations.
//
// Every tick recomputes from a fresh snapshot, so a missed or late tick only
// makes a value stale. Jobs must be stopped when their consumer goes away.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Func is one recomputation. It should return promptly once ctx is done.
type Func func(ctx context.Context)

// Job is a running recurring computation.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every runs fn immediately and then once per interval until Stop is called
// or ctx is cancelled. Ticks never overlap: a slow fn delays the next tick
// rather than running concurrently with it.
func Every(ctx context.Context, interval time.Duration, fn Func) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(j.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		run(ctx, fn)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run(ctx, fn)
			}
		}
	}()
	return j
}

// run calls fn, recovering a panic so the job keeps ticking.
func run(ctx context.Context, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC recovered in poll job", "panic", r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	fn(ctx)
}

// Stop cancels the job and waits for the current tick to finish. It is safe
// to call more than once and from several goroutines.
func (j *Job) Stop() {
	j.once.Do(j.cancel)
	<-j.done
}

// Done is closed once the job has exited.
func (j *Job) Done() <-chan struct{} {
	return j.done
}
