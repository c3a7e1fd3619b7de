package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// Size constants for artifact loading.
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// ScoringWeights holds every tuned constant of the relevance model.
// The defaults reproduce the reference ranking; they are configurable,
// not invariants.
type ScoringWeights struct {
	// Fuzzy alignment.
	MatchChar      float64 // per aligned character
	ProximityGap1  float64 // consecutive matches one rune apart
	ProximityGap2  float64
	ProximityGap3  float64
	ExactBonus     float64 // target equals query
	PrefixBonus    float64 // target starts with query
	SubstringBonus float64 // target contains query
	NormBase       float64 // normaliser: NormBase + len(q)*NormPerChar
	NormPerChar    float64
	FuzzyFloor     float64 // normalised scores below this are no match

	// Typo tolerance.
	TypoRatio    float64 // tolerated distance as a fraction of query length
	MaxLengthGap int     // length gap above which distance is not computed

	// Pass one.
	TitleFuzzy      float64
	ContentFuzzy    float64
	TitleTypo       float64
	ContentTypo     float64
	TitleExactToken float64 // token equals the whole title
	TitleToken      float64 // token is a substring of the title
	ContentToken    float64 // token is a substring of the content
	PageThreshold   float64 // pages must score strictly above this

	// Pass two.
	AnchorFuzzy float64 // minimum fuzzy score for an anchor match

	// MinFuzzyQueryLen is the query length below which fuzzy and typo
	// matching are disabled.
	MinFuzzyQueryLen int
}

// DefaultScoringWeights returns the reference weights.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		MatchChar:        10,
		ProximityGap1:    15,
		ProximityGap2:    5,
		ProximityGap3:    2,
		ExactBonus:       100,
		PrefixBonus:      50,
		SubstringBonus:   30,
		NormBase:         100,
		NormPerChar:      15,
		FuzzyFloor:       0.30,
		TypoRatio:        0.3,
		MaxLengthGap:     3,
		TitleFuzzy:       100,
		ContentFuzzy:     30,
		TitleTypo:        50,
		ContentTypo:      15,
		TitleExactToken:  20,
		TitleToken:       10,
		ContentToken:     2,
		PageThreshold:    5,
		AnchorFuzzy:      0.40,
		MinFuzzyQueryLen: 3,
	}
}

// IndexSettings configures the index builder.
type IndexSettings struct {
	// Enable gates whether the builder runs at all.
	Enable bool

	// MaxHeadingLevel is the deepest heading level indexed as an anchor (1..6).
	MaxHeadingLevel int

	// InputDir is the root of the rendered or source pages.
	InputDir string

	// Output is the artifact file written by the builder.
	Output string

	// Concurrency bounds parallel page rendering (0 uses GOMAXPROCS).
	Concurrency int
}

// SearchSettings holds query execution configuration.
type SearchSettings struct {
	// Limit is the default result cap.
	Limit int

	// Worker selects the background worker implementation.
	Worker WorkerKind

	// WorkerThreshold is the corpus size from which the worker is preferred.
	WorkerThreshold int

	// WorkerTimeout bounds a single worker round trip.
	WorkerTimeout time.Duration

	// TokenChunkSize is the number of documents per token map chunk.
	TokenChunkSize int

	// TokenMapPruning restricts pass one to documents reachable via the token map.
	TokenMapPruning bool

	// SnippetWidth is the snippet window in bytes.
	SnippetWidth int

	// Weights are the relevance constants.
	Weights ScoringWeights
}

// ArtifactSettings configures where and how the artifact is loaded.
type ArtifactSettings struct {
	// Locations are tried in order; the first that responds wins.
	Locations []string

	// Root resolves root-relative file locations.
	Root string

	// BaseURL switches loading to HTTP when set.
	BaseURL string

	// EagerLimit is the payload size from which loading is incremental.
	EagerLimit int64

	// YieldEvery is the number of accumulated bytes between yields.
	YieldEvery int

	// Watch reloads the artifact when the file changes.
	Watch bool
}

// Settings holds all docsearch settings.
type Settings struct {
	Index    IndexSettings
	Search   SearchSettings
	Artifact ArtifactSettings
}

// DefaultArtifactName is the file name of the index artifact.
const DefaultArtifactName = "search-index.json"

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Index: IndexSettings{
			Enable:          true,
			MaxHeadingLevel: 3,
			InputDir:        "docs",
			Output:          "public/assets/" + DefaultArtifactName,
		},
		Search: SearchSettings{
			Limit:           10,
			Worker:          WorkerKindLocal,
			WorkerThreshold: 1000,
			WorkerTimeout:   5 * time.Second,
			TokenChunkSize:  100,
			TokenMapPruning: true,
			SnippetWidth:    160,
			Weights:         DefaultScoringWeights(),
		},
		Artifact: ArtifactSettings{
			// Primary path, then the root-relative fallback.
			Locations:  []string{"assets/" + DefaultArtifactName, "/" + DefaultArtifactName},
			Root:       "public",
			EagerLimit: 1 * MiB,
			YieldEvery: 100 * KiB,
		},
	}
}

// Validate checks settings ranges.
func (s *Settings) Validate() error {
	if s.Index.MaxHeadingLevel < MinHeadingLevel || s.Index.MaxHeadingLevel > MaxHeadingLevel {
		return fmt.Errorf("%w: max_heading_level must be between %d and %d, got %d",
			ErrInvalidInput, MinHeadingLevel, MaxHeadingLevel, s.Index.MaxHeadingLevel)
	}
	if !s.Search.Worker.IsValid() {
		return fmt.Errorf("%w: unknown worker %q", ErrInvalidInput, s.Search.Worker)
	}
	if s.Search.Limit <= 0 {
		return fmt.Errorf("%w: search limit must be positive", ErrInvalidInput)
	}
	if s.Search.TokenChunkSize <= 0 {
		return fmt.Errorf("%w: token_chunk_size must be positive", ErrInvalidInput)
	}
	if s.Search.WorkerTimeout <= 0 {
		return fmt.Errorf("%w: worker_timeout must be positive", ErrInvalidInput)
	}
	if len(s.Artifact.Locations) == 0 {
		return fmt.Errorf("%w: at least one artifact location is required", ErrInvalidInput)
	}
	if s.Artifact.YieldEvery <= 0 {
		return fmt.Errorf("%w: yield_every must be positive", ErrInvalidInput)
	}
	return nil
}
