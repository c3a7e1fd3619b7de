package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// QueryWorker runs queries away from the caller's goroutine. It speaks the
// worker message protocol: every request carries a messageId that the
// matching response echoes.
type QueryWorker interface {
	// Start launches the worker. It is called once before the first Send.
	Start(ctx context.Context) error

	// Send delivers a request. It does not wait for the response.
	Send(ctx context.Context, req domain.WorkerRequest) error

	// Replies returns the response stream. It is closed when the worker exits.
	Replies() <-chan domain.WorkerResponse

	// Close stops the worker and releases its resources.
	Close() error
}
