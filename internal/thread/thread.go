// Package thread provides a single dedicated OS thread that the frame
// scheduler's loop runs on, per the RHI's rule that command-list recording
// may happen on any goroutine but the submit/signal/present sequence runs
// on one designated render thread. All calls routed through a Thread are
// serialized and execute on the same underlying OS thread.
package thread

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Thread pins a goroutine to an OS thread and runs submitted work on it.
type Thread struct {
	funcs   chan func()
	done    chan struct{}
	running atomic.Bool
}

// New creates a Thread and blocks until its underlying goroutine has
// locked itself to an OS thread and is ready to accept work.
func New() *Thread {
	t := &Thread{
		funcs: make(chan func(), 16),
		done:  make(chan struct{}),
	}
	t.running.Store(true)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		wg.Done()

		for {
			select {
			case f := <-t.funcs:
				f()
			case <-t.done:
				return
			}
		}
	}()

	wg.Wait()
	return t
}

// Call executes f on the thread and waits for its result.
func (t *Thread) Call(f func() any) any {
	if !t.running.Load() {
		return nil
	}

	done := make(chan any, 1)
	t.funcs <- func() {
		done <- f()
	}
	return <-done
}

// CallVoid executes f on the thread and waits for it to finish.
func (t *Thread) CallVoid(f func()) {
	if !t.running.Load() {
		return
	}

	done := make(chan struct{})
	t.funcs <- func() {
		f()
		close(done)
	}
	<-done
}

// CallAsync queues f to run on the thread without waiting. If the queue is
// full, it falls back to a synchronous call rather than deadlocking the
// caller.
func (t *Thread) CallAsync(f func()) {
	if !t.running.Load() {
		return
	}

	select {
	case t.funcs <- f:
	default:
		t.CallVoid(f)
	}
}

// Stop shuts the thread down. Calls made after Stop are no-ops.
func (t *Thread) Stop() {
	if t.running.Swap(false) {
		close(t.done)
	}
}

// IsRunning reports whether the thread is still accepting work.
func (t *Thread) IsRunning() bool {
	return t.running.Load()
}
