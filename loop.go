package htmlinclude

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loop is a cooperative, single-threaded task queue.
//
// Element and document state is only ever touched from tasks run by the
// goroutine that drives the loop (Run, RunUntil, RunUntilIdle). Blocking
// work such as network I/O is started with Await, which runs it on its
// own goroutine and posts the continuation back onto the queue. That
// continuation is the resume point of a suspended operation.
//
// A Loop has no notion of cancelling outstanding work. Work that is
// abandoned by its caller still completes and its continuation still runs.
type Loop struct {
	ctx context.Context

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	awaits atomic.Int64
}

// NewLoop creates a loop. ctx is handed to work started with Await; it is
// the only bound on how long outstanding work runs.
func NewLoop(ctx context.Context) *Loop {
	return &Loop{
		ctx:  ctx,
		wake: make(chan struct{}, 1),
	}
}

// Context returns the context given to NewLoop.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Post enqueues fn. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Outstanding returns the number of Await calls whose continuation has
// not yet run.
func (l *Loop) Outstanding() int {
	return int(l.awaits.Load())
}

// Await runs work off the loop and posts then(result, err) back onto it.
//
// Await must be called from the loop goroutine (or before the loop is
// driven). The caller returns immediately; nothing on the loop blocks
// while work is outstanding.
func Await[T any](l *Loop, work func(ctx context.Context) (T, error), then func(T, error)) {
	l.awaits.Add(1)
	go func() {
		v, err := work(l.ctx)
		l.Post(func() {
			defer l.awaits.Add(-1)
			then(v, err)
		})
	}()
}

// Run processes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.step() {
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunUntilIdle processes tasks until the queue is empty and no awaited
// work is outstanding.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.RunUntil(ctx, func() bool { return l.Outstanding() == 0 })
}

// RunUntil processes tasks until the queue is empty and done reports true.
// done is evaluated on the loop goroutine between tasks.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.step() {
			continue
		}
		if done() {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// step runs the oldest queued task, if any.
func (l *Loop) step() bool {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.mu.Unlock()

	fn()
	return true
}
