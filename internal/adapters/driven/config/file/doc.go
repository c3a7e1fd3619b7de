// Package file provides the TOML configuration store.
//
// The file is read once at startup and flattened into dot-notation keys
// ("search.worker_timeout"). Writes nest the keys again so that the saved
// file keeps its [section] layout.
package file
