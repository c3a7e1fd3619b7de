// Package worker runs query sessions off the caller's goroutine.
//
// Handler answers worker protocol messages against the documents it was
// last sent. LocalWorker runs a Handler on a goroutine; ProcessWorker runs
// one in a child "docsearch worker" process and talks to it over JSON lines
// on stdin and stdout, which Serve implements on the child side.
package worker
