package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Serve answers JSON-line requests read from r with JSON-line responses
// written to w until r is exhausted or ctx is done. Lines that are not valid
// requests get an error response with an empty message id.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h *Handler) error {
	reader := bufio.NewReader(r)
	enc := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if werr := enc.Encode(answer(ctx, h, line)); werr != nil {
				return fmt.Errorf("write response: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
	}
}

func answer(ctx context.Context, h *Handler, line []byte) domain.WorkerResponse {
	var req domain.WorkerRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse("", fmt.Errorf("decode request: %w", err))
	}
	return h.Handle(ctx, req)
}
