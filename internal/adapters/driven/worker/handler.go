package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/engine"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// ErrClosed is returned when sending to a closed worker.
var ErrClosed = errors.New("worker closed")

// Handler answers worker requests. It keeps one engine, built for the last
// generation of documents it received.
type Handler struct {
	opts  []engine.Option
	chunk int

	mu         sync.Mutex
	generation uint64
	engine     *engine.Engine
}

// NewHandler creates a handler whose engines are built with opts.
// chunkSize is the token map chunk size (0 uses the default).
func NewHandler(chunkSize int, opts ...engine.Option) *Handler {
	return &Handler{opts: opts, chunk: chunkSize}
}

// Handle answers one request. Failures are reported as error responses
// carrying the request's message id.
func (h *Handler) Handle(ctx context.Context, req domain.WorkerRequest) domain.WorkerResponse {
	var (
		resp domain.WorkerResponse
		err  error
	)
	switch req.Type {
	case domain.WorkerRequestSearch:
		resp, err = h.search(ctx, req)
	case domain.WorkerRequestTokenize:
		resp, err = h.tokenize(req)
	default:
		err = fmt.Errorf("unknown request type %q", req.Type)
	}
	if err != nil {
		logger.Debug("worker: %s %s: %v", req.Type, req.MessageID, err)
		return errorResponse(req.MessageID, err)
	}
	resp.MessageID = req.MessageID
	return resp
}

func (h *Handler) search(ctx context.Context, req domain.WorkerRequest) (domain.WorkerResponse, error) {
	var data domain.WorkerSearchData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return domain.WorkerResponse{}, fmt.Errorf("decode search request: %w", err)
	}

	eng, err := h.engineFor(ctx, data)
	if err != nil {
		return domain.WorkerResponse{}, err
	}

	matches, err := eng.Search(data.Query, data.Limit)
	if err != nil {
		return domain.WorkerResponse{}, err
	}

	results := domain.WorkerResultsData{
		Generation: data.Generation,
		Matches:    make([]domain.WorkerMatch, 0, len(matches)),
	}
	for _, m := range matches {
		wm := domain.WorkerMatch{DocumentID: m.Document.ID, PageScore: m.PageScore}
		for _, a := range m.MatchingAnchors {
			wm.AnchorIDs = append(wm.AnchorIDs, a.ID)
		}
		results.Matches = append(results.Matches, wm)
	}
	return reply(domain.WorkerResponseResults, results)
}

// engineFor returns the engine for data's generation, building it when data
// carries documents.
func (h *Handler) engineFor(ctx context.Context, data domain.WorkerSearchData) (*engine.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if data.Documents != nil {
		docs := data.Documents
		for _, id := range data.Malformed {
			if id >= 0 && id < len(docs) {
				docs[id].Malformed = true
			}
		}
		tm := engine.BuildTokenMap(ctx, docs, engine.BuildOptions{ChunkSize: h.chunk})
		opts := append([]engine.Option{engine.WithTokenMap(tm)}, h.opts...)
		h.engine = engine.New(docs, opts...)
		h.generation = data.Generation
		logger.Debug("worker: generation %d, %d documents, %d terms", data.Generation, len(docs), tm.Len())
	}

	if h.engine == nil || h.generation != data.Generation {
		return nil, fmt.Errorf("documents for generation %d were never sent", data.Generation)
	}
	return h.engine, nil
}

func (h *Handler) tokenize(req domain.WorkerRequest) (domain.WorkerResponse, error) {
	var data domain.WorkerTokenizeData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return domain.WorkerResponse{}, fmt.Errorf("decode tokenize request: %w", err)
	}
	return reply(domain.WorkerResponseTokens, domain.WorkerTokensData{Tokens: engine.Tokenize(data.Text)})
}

func reply(typ string, payload any) (domain.WorkerResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.WorkerResponse{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	return domain.WorkerResponse{Type: typ, Data: data}, nil
}

func errorResponse(messageID string, err error) domain.WorkerResponse {
	return domain.WorkerResponse{
		MessageID: messageID,
		Type:      domain.WorkerResponseError,
		Error:     err.Error(),
	}
}
