// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ArtifactFetcher: Opens the index artifact (local file or HTTP)
//   - ConfigStore: Application configuration
//
// The index builder additionally needs:
//
//   - PageSource: Lists and reads documentation input files
//   - RendererRegistry: Turns input files into rendered pages
//   - ArtifactWriter: Persists the document array
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - QueryWorker: Off-thread query execution. Without it every query runs
//     inline or through the fallback scorer.
//   - ArtifactWatcher: Change notification. Without it the index is only
//     reloaded on demand.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or renderer package
package driven
