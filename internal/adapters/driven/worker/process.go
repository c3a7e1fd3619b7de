package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure ProcessWorker implements the interface.
var _ driven.QueryWorker = (*ProcessWorker)(nil)

// exitGrace is how long Close waits for the child to exit before killing it.
const exitGrace = 2 * time.Second

// ProcessWorker runs the worker in a child process speaking JSON lines on
// stdin and stdout. By default the child is this executable's
// "worker" subcommand.
type ProcessWorker struct {
	path string
	args []string
	env  []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder
	writeMu sync.Mutex
	replies chan domain.WorkerResponse
	exited  chan struct{}
	closed  bool
}

// ProcessOption configures a ProcessWorker.
type ProcessOption func(*ProcessWorker)

// WithCommand sets the child command.
func WithCommand(path string, args ...string) ProcessOption {
	return func(w *ProcessWorker) {
		w.path = path
		w.args = args
	}
}

// WithEnv adds environment variables to the child's environment.
func WithEnv(env ...string) ProcessOption {
	return func(w *ProcessWorker) {
		w.env = append(w.env, env...)
	}
}

// NewProcessWorker creates a worker that is spawned on Start.
func NewProcessWorker(opts ...ProcessOption) *ProcessWorker {
	w := &ProcessWorker{args: []string{"worker"}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start spawns the child process.
func (w *ProcessWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.cmd != nil {
		return nil
	}

	path := w.path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}

	cmd := exec.CommandContext(ctx, path, w.args...)
	cmd.Env = append(os.Environ(), w.env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}
	logger.Debug("worker: started process %d (%s)", cmd.Process.Pid, path)

	w.cmd = cmd
	w.stdin = stdin
	w.enc = json.NewEncoder(stdin)
	w.replies = make(chan domain.WorkerResponse, 16)
	w.exited = make(chan struct{})

	go w.read(stdout)
	return nil
}

// read forwards responses from the child until its stdout closes.
func (w *ProcessWorker) read(stdout io.Reader) {
	defer close(w.exited)
	defer close(w.replies)

	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var resp domain.WorkerResponse
			if uerr := json.Unmarshal(line, &resp); uerr != nil {
				logger.Warn("worker: invalid response: %v", uerr)
			} else {
				w.replies <- resp
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("worker: read: %v", err)
			}
			break
		}
	}

	if err := w.cmd.Wait(); err != nil {
		logger.Debug("worker: process exited: %v", err)
	}
}

// Send writes req to the child's stdin.
func (w *ProcessWorker) Send(ctx context.Context, req domain.WorkerRequest) error {
	w.mu.Lock()
	if w.closed || w.cmd == nil {
		w.mu.Unlock()
		return ErrClosed
	}
	enc := w.enc
	w.mu.Unlock()

	// A child busy with an earlier request may not drain the pipe, so the
	// write runs aside and the caller only waits as long as ctx allows.
	errc := make(chan error, 1)
	go func() {
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		errc <- enc.Encode(req)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replies returns the response channel. It is closed when the child exits.
func (w *ProcessWorker) Replies() <-chan domain.WorkerResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.replies
}

// Close closes the child's stdin and waits briefly for it to exit before
// killing it.
func (w *ProcessWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	cmd, stdin, exited := w.cmd, w.stdin, w.exited
	w.mu.Unlock()

	if cmd == nil {
		return nil
	}
	_ = stdin.Close()

	select {
	case <-exited:
		return nil
	case <-time.After(exitGrace):
		logger.Warn("worker: process %d did not exit, killing", cmd.Process.Pid)
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill worker: %w", err)
		}
		<-exited
		return nil
	}
}
