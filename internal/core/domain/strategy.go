package domain

// ExecutionStrategy is how a single query is executed.
type ExecutionStrategy string

// Available execution strategies.
const (
	// StrategyInline runs the query engine on the calling goroutine.
	StrategyInline ExecutionStrategy = "inline"

	// StrategyWorker hands the query to the background worker.
	StrategyWorker ExecutionStrategy = "worker"

	// StrategyFallback uses plain substring scoring. It keeps search usable
	// while the token map is being built or after the worker failed.
	StrategyFallback ExecutionStrategy = "fallback"
)

// IsValid returns true if the strategy is recognised.
func (s ExecutionStrategy) IsValid() bool {
	switch s {
	case StrategyInline, StrategyWorker, StrategyFallback:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ExecutionStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ExecutionStrategy) Description() string {
	switch s {
	case StrategyInline:
		return "Inline (fuzzy, same goroutine)"
	case StrategyWorker:
		return "Worker (fuzzy, background worker)"
	case StrategyFallback:
		return "Fallback (substring only)"
	default:
		return unknownDescription
	}
}

// WorkerState tracks the lifecycle of the optional background worker.
type WorkerState int

const (
	// WorkerUnattempted means the worker has not been started yet.
	WorkerUnattempted WorkerState = iota

	// WorkerActive means the worker started and has not failed.
	WorkerActive

	// WorkerDisabled means the worker failed once and is not used again
	// for the lifetime of the process.
	WorkerDisabled
)

// String returns the string representation.
func (s WorkerState) String() string {
	switch s {
	case WorkerUnattempted:
		return "unattempted"
	case WorkerActive:
		return "active"
	case WorkerDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// WorkerKind selects which worker implementation backs the Worker strategy.
type WorkerKind string

// Available worker kinds.
const (
	WorkerKindNone    WorkerKind = "none"
	WorkerKindLocal   WorkerKind = "local"
	WorkerKindProcess WorkerKind = "process"
)

// IsValid returns true if the worker kind is recognised.
func (k WorkerKind) IsValid() bool {
	switch k {
	case WorkerKindNone, WorkerKindLocal, WorkerKindProcess:
		return true
	default:
		return false
	}
}

// LoadState is the state of the artifact loader.
type LoadState int

const (
	LoadNotLoaded LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

// String returns the string representation.
func (s LoadState) String() string {
	switch s {
	case LoadNotLoaded:
		return "not_loaded"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}
