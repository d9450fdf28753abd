package capture

import (
	"context"
	"sync"
	"time"
)

// Result describes a finished recording. Err is set when capture stopped on a
// device or write failure; the file at Path still holds everything written
// before the failure.
type Result struct {
	Path     string
	Frames   int
	Duration time.Duration
	Err      error
}

// Handle controls one running capture task.
type Handle struct {
	path     string
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	result   Result
}

func newHandle(path string) *Handle {
	return &Handle{
		path: path,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Path returns the recording file path.
func (h *Handle) Path() string { return h.path }

// Stop requests the capture task to finish. It is safe to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Done is closed once the recording file has been finalized and closed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the outcome of the capture. It is only meaningful after Done is closed.
func (h *Handle) Result() Result {
	select {
	case <-h.done:
		return h.result
	default:
		return Result{Path: h.path}
	}
}

// Wait blocks until the capture task finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{Path: h.path}, ctx.Err()
	}
}

func (h *Handle) finish(r Result) {
	h.result = r
	close(h.done)
}
