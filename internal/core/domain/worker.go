package domain

import "encoding/json"

// Worker message types.
const (
	WorkerRequestSearch   = "search"
	WorkerRequestTokenize = "tokenize"

	WorkerResponseResults = "results"
	WorkerResponseTokens  = "tokens"
	WorkerResponseError   = "error"
)

// WorkerRequest is a message sent to the background worker.
// MessageID must come back unchanged on the response.
type WorkerRequest struct {
	MessageID string          `json:"messageId"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// WorkerResponse is a message sent back by the background worker.
type WorkerResponse struct {
	MessageID string          `json:"messageId"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// WorkerSearchData is the payload of a search request.
// Documents is only sent when the worker has not seen Generation yet,
// together with the ids of the documents flagged malformed.
type WorkerSearchData struct {
	Query      string     `json:"query"`
	Limit      int        `json:"limit"`
	Generation uint64     `json:"generation"`
	Documents  []Document `json:"documents,omitempty"`
	Malformed  []int      `json:"malformed,omitempty"`
}

// WorkerTokenizeData is the payload of a tokenize request.
type WorkerTokenizeData struct {
	Text string `json:"text"`
}

// WorkerMatch is a compact match returned by the worker.
// The caller hydrates it against its own document snapshot.
type WorkerMatch struct {
	DocumentID int      `json:"documentId"`
	PageScore  float64  `json:"pageScore"`
	AnchorIDs  []string `json:"anchorIds,omitempty"`
}

// WorkerResultsData is the payload of a results response.
type WorkerResultsData struct {
	Generation uint64        `json:"generation"`
	Matches    []WorkerMatch `json:"matches"`
}

// WorkerTokensData is the payload of a tokens response.
type WorkerTokensData struct {
	Tokens []string `json:"tokens"`
}
