// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// SearchService owns the loaded snapshot and picks an execution strategy per
// query. ArtifactLoader streams the artifact from an ArtifactFetcher.
// IndexService renders input pages and writes the artifact. SettingsService
// reads and validates the TOML configuration.
//
// Services are pure Go with no CGO.
package services
