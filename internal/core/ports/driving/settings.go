package driving

import "github.com/custodia-labs/docsearch/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults overlaid with the
	// configuration file.
	Get() (*domain.Settings, error)

	// Set validates and persists one configuration key.
	Set(key string, value string) error

	// Path returns the configuration file path.
	Path() string
}
