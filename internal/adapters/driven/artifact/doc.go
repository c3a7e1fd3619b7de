// Package artifact provides the driven adapters that move the index artifact
// between disk, the network and the search service.
//
// FileFetcher and HTTPFetcher implement driven.ArtifactFetcher, FileWriter
// implements driven.ArtifactWriter, Watcher implements driven.ArtifactWatcher
// and DirSource implements driven.PageSource for the index builder.
package artifact
