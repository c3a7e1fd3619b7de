package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyIndexEnable          = "index.enable"
	keyIndexMaxHeadingLevel = "index.max_heading_level"
	keyIndexInputDir        = "index.input_dir"
	keyIndexOutput          = "index.output"
	keyIndexConcurrency     = "index.concurrency"

	keySearchLimit           = "search.limit"
	keySearchWorker          = "search.worker"
	keySearchWorkerThreshold = "search.worker_threshold"
	keySearchWorkerTimeout   = "search.worker_timeout"
	keySearchTokenChunkSize  = "search.token_chunk_size"
	keySearchTokenPruning    = "search.token_map_pruning"
	keySearchSnippetWidth    = "search.snippet_width"
	keySearchWeightsPrefix   = "search.weights."

	keyArtifactLocations  = "artifact.locations"
	keyArtifactRoot       = "artifact.root"
	keyArtifactBaseURL    = "artifact.base_url"
	keyArtifactEagerLimit = "artifact.eager_limit"
	keyArtifactYieldEvery = "artifact.yield_every"
	keyArtifactWatch      = "artifact.watch"
)

// keyKind is the value type stored under a config key.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindStrings
)

var keyKinds = map[string]keyKind{
	keyIndexEnable:          kindBool,
	keyIndexMaxHeadingLevel: kindInt,
	keyIndexInputDir:        kindString,
	keyIndexOutput:          kindString,
	keyIndexConcurrency:     kindInt,

	keySearchLimit:           kindInt,
	keySearchWorker:          kindString,
	keySearchWorkerThreshold: kindInt,
	keySearchWorkerTimeout:   kindDuration,
	keySearchTokenChunkSize:  kindInt,
	keySearchTokenPruning:    kindBool,
	keySearchSnippetWidth:    kindInt,

	keyArtifactLocations:  kindStrings,
	keyArtifactRoot:       kindString,
	keyArtifactBaseURL:    kindString,
	keyArtifactEagerLimit: kindInt,
	keyArtifactYieldEvery: kindInt,
	keyArtifactWatch:      kindBool,
}

func init() {
	w := domain.DefaultScoringWeights()
	for name := range floatWeights(&w) {
		keyKinds[keySearchWeightsPrefix+name] = kindFloat
	}
	for name := range intWeights(&w) {
		keyKinds[keySearchWeightsPrefix+name] = kindInt
	}
}

// floatWeights maps [search.weights] key names to weight fields.
func floatWeights(w *domain.ScoringWeights) map[string]*float64 {
	return map[string]*float64{
		"match_char":        &w.MatchChar,
		"proximity_gap1":    &w.ProximityGap1,
		"proximity_gap2":    &w.ProximityGap2,
		"proximity_gap3":    &w.ProximityGap3,
		"exact_bonus":       &w.ExactBonus,
		"prefix_bonus":      &w.PrefixBonus,
		"substring_bonus":   &w.SubstringBonus,
		"norm_base":         &w.NormBase,
		"norm_per_char":     &w.NormPerChar,
		"fuzzy_floor":       &w.FuzzyFloor,
		"typo_ratio":        &w.TypoRatio,
		"title_fuzzy":       &w.TitleFuzzy,
		"content_fuzzy":     &w.ContentFuzzy,
		"title_typo":        &w.TitleTypo,
		"content_typo":      &w.ContentTypo,
		"title_exact_token": &w.TitleExactToken,
		"title_token":       &w.TitleToken,
		"content_token":     &w.ContentToken,
		"page_threshold":    &w.PageThreshold,
		"anchor_fuzzy":      &w.AnchorFuzzy,
	}
}

func intWeights(w *domain.ScoringWeights) map[string]*int {
	return map[string]*int{
		"max_length_gap":      &w.MaxLengthGap,
		"min_fuzzy_query_len": &w.MinFuzzyQueryLen,
	}
}

// KnownKeys returns every recognised configuration key, sorted.
func KnownKeys() []string {
	keys := lo.Keys(keyKinds)
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the defaults overlaid with the configuration file.
// Values of the wrong type are ignored. The result is validated.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := LoadSettings(s.configStore)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Set parses value according to the type of key, validates the resulting
// settings and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	candidate := LoadSettings(overlay{ConfigStore: s.configStore, key: key, value: parsed})
	if err := candidate.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// LoadSettings reads settings from store on top of domain.DefaultSettings.
// A nil store yields the defaults.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()
	if store == nil {
		return settings
	}
	r := reader{store}

	settings.Index.Enable = r.getBool(keyIndexEnable, settings.Index.Enable)
	settings.Index.MaxHeadingLevel = r.getInt(keyIndexMaxHeadingLevel, settings.Index.MaxHeadingLevel)
	settings.Index.InputDir = r.getString(keyIndexInputDir, settings.Index.InputDir)
	settings.Index.Output = r.getString(keyIndexOutput, settings.Index.Output)
	settings.Index.Concurrency = r.getInt(keyIndexConcurrency, settings.Index.Concurrency)

	settings.Search.Limit = r.getInt(keySearchLimit, settings.Search.Limit)
	settings.Search.Worker = domain.WorkerKind(r.getString(keySearchWorker, string(settings.Search.Worker)))
	settings.Search.WorkerThreshold = r.getInt(keySearchWorkerThreshold, settings.Search.WorkerThreshold)
	settings.Search.WorkerTimeout = r.getDuration(keySearchWorkerTimeout, settings.Search.WorkerTimeout)
	settings.Search.TokenChunkSize = r.getInt(keySearchTokenChunkSize, settings.Search.TokenChunkSize)
	settings.Search.TokenMapPruning = r.getBool(keySearchTokenPruning, settings.Search.TokenMapPruning)
	settings.Search.SnippetWidth = r.getInt(keySearchSnippetWidth, settings.Search.SnippetWidth)

	for name, field := range floatWeights(&settings.Search.Weights) {
		*field = r.getFloat(keySearchWeightsPrefix+name, *field)
	}
	for name, field := range intWeights(&settings.Search.Weights) {
		*field = r.getInt(keySearchWeightsPrefix+name, *field)
	}

	if locations := store.GetStringSlice(keyArtifactLocations); len(locations) > 0 {
		settings.Artifact.Locations = locations
	}
	settings.Artifact.Root = r.getString(keyArtifactRoot, settings.Artifact.Root)
	settings.Artifact.BaseURL = r.getString(keyArtifactBaseURL, settings.Artifact.BaseURL)
	settings.Artifact.EagerLimit = int64(r.getInt(keyArtifactEagerLimit, int(settings.Artifact.EagerLimit)))
	settings.Artifact.YieldEvery = r.getInt(keyArtifactYieldEvery, settings.Artifact.YieldEvery)
	settings.Artifact.Watch = r.getBool(keyArtifactWatch, settings.Artifact.Watch)

	return settings
}

// Helper methods for reading config with defaults.

type reader struct {
	store driven.ConfigStore
}

func (r reader) getString(key, defaultVal string) string {
	val := r.store.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt keeps an explicit zero so that validation can reject it.
func (r reader) getInt(key string, defaultVal int) int {
	val, ok := r.store.Get(key)
	if !ok {
		return defaultVal
	}
	switch val.(type) {
	case int, int64:
		return r.store.GetInt(key)
	default:
		return defaultVal
	}
}

func (r reader) getFloat(key string, defaultVal float64) float64 {
	val, ok := r.store.Get(key)
	if !ok {
		return defaultVal
	}
	switch val.(type) {
	case float64, int, int64:
		return r.store.GetFloat(key)
	default:
		return defaultVal
	}
}

func (r reader) getBool(key string, defaultVal bool) bool {
	val, exists := r.store.Get(key)
	if !exists {
		return defaultVal
	}
	if _, ok := val.(bool); !ok {
		return defaultVal
	}
	return r.store.GetBool(key)
}

// getDuration accepts a Go duration string or an integer number of milliseconds.
func (r reader) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := r.store.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return defaultVal
		}
		return d
	case int64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	default:
		return defaultVal
	}
}

func parseValue(kind keyKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, err
		}
		return value, nil
	case kindStrings:
		parts := lo.Map(strings.Split(value, ","), func(p string, _ int) string {
			return strings.TrimSpace(p)
		})
		parts = lo.Filter(parts, func(p string, _ int) bool { return p != "" })
		if len(parts) == 0 {
			return nil, errors.New("empty list")
		}
		return parts, nil
	default:
		return value, nil
	}
}

// overlay is a read-only view of a store with one key replaced.
type overlay struct {
	driven.ConfigStore
	key   string
	value any
}

func (o overlay) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}

func (o overlay) GetString(key string) string {
	if key == o.key {
		s, _ := o.value.(string)
		return s
	}
	return o.ConfigStore.GetString(key)
}

func (o overlay) GetInt(key string) int {
	if key == o.key {
		i, _ := o.value.(int)
		return i
	}
	return o.ConfigStore.GetInt(key)
}

func (o overlay) GetFloat(key string) float64 {
	if key == o.key {
		switch v := o.value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
		return 0
	}
	return o.ConfigStore.GetFloat(key)
}

func (o overlay) GetBool(key string) bool {
	if key == o.key {
		b, _ := o.value.(bool)
		return b
	}
	return o.ConfigStore.GetBool(key)
}

func (o overlay) GetStringSlice(key string) []string {
	if key == o.key {
		ss, _ := o.value.([]string)
		return ss
	}
	return o.ConfigStore.GetStringSlice(key)
}
