package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchUnavailable indicates the index artifact could not be loaded.
	// Users see "search unavailable"; the next query retries the load.
	ErrSearchUnavailable = errors.New("search unavailable")

	// Artifact Errors.

	// ErrArtifactNotFound indicates no candidate location responded.
	ErrArtifactNotFound = errors.New("index artifact not found")

	// ErrArtifactMalformed indicates the payload is not a JSON document array.
	ErrArtifactMalformed = errors.New("index artifact malformed")

	// ErrArtifactNotLoaded indicates the query engine was used before a
	// document set was attached.
	ErrArtifactNotLoaded = errors.New("index artifact not loaded")

	// ErrInvalidDocument indicates a single document failed shape validation.
	// It is skipped, never fatal.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrUnsupportedFormat indicates no renderer handles an input file.
	ErrUnsupportedFormat = errors.New("unsupported page format")

	// ErrIndexDisabled indicates the index builder is switched off by configuration.
	ErrIndexDisabled = errors.New("index building disabled")

	// Worker Errors.

	// ErrWorkerTimeout indicates the worker did not reply in time.
	ErrWorkerTimeout = errors.New("worker timeout")

	// ErrWorkerUnavailable indicates no worker is configured or it was disabled.
	ErrWorkerUnavailable = errors.New("worker unavailable")

	// ErrWorkerFailed indicates the worker replied with an error message.
	ErrWorkerFailed = errors.New("worker failed")
)
