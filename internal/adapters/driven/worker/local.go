package worker

import (
	"context"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure LocalWorker implements the interface.
var _ driven.QueryWorker = (*LocalWorker)(nil)

// LocalWorker runs a Handler on its own goroutine. Requests are served one
// at a time in the order they were sent.
type LocalWorker struct {
	handler *Handler

	mu       sync.Mutex
	started  bool
	requests chan domain.WorkerRequest
	replies  chan domain.WorkerResponse
	done     chan struct{}
	stopOnce sync.Once
}

// NewLocalWorker creates an in-process worker around handler.
func NewLocalWorker(handler *Handler) *LocalWorker {
	return &LocalWorker{
		handler:  handler,
		requests: make(chan domain.WorkerRequest),
		replies:  make(chan domain.WorkerResponse, 16),
		done:     make(chan struct{}),
	}
}

// Start launches the serving goroutine. It stops when ctx is done or the
// worker is closed.
func (w *LocalWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	if w.started {
		return nil
	}
	w.started = true
	go w.serve(ctx)
	return nil
}

func (w *LocalWorker) serve(ctx context.Context) {
	defer close(w.replies)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return
		case <-w.done:
			return
		case req := <-w.requests:
			resp := w.handler.Handle(ctx, req)
			select {
			case w.replies <- resp:
			case <-w.done:
				return
			case <-ctx.Done():
				w.stop()
				return
			}
		}
	}
}

// Send hands req to the worker.
func (w *LocalWorker) Send(ctx context.Context, req domain.WorkerRequest) error {
	select {
	case w.requests <- req:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replies returns the response channel. It is closed when the worker stops.
func (w *LocalWorker) Replies() <-chan domain.WorkerResponse {
	return w.replies
}

// Close stops the worker.
func (w *LocalWorker) Close() error {
	w.stop()
	return nil
}

func (w *LocalWorker) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}
