// Command docsearch builds and queries documentation search indexes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/artifact"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/worker"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/services"
	"github.com/custodia-labs/docsearch/internal/engine"
	"github.com/custodia-labs/docsearch/internal/normalisers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, newServices)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newServices wires the adapters into the core services.
func newServices(opts cli.Options) (*cli.Services, error) {
	store, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	settingsService := services.NewSettingsService(store)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if opts.InputDir != "" {
		settings.Index.InputDir = opts.InputDir
	}
	if opts.Output != "" {
		settings.Index.Output = opts.Output
	}

	fetcher, err := newFetcher(settings.Artifact)
	if err != nil {
		return nil, err
	}
	loader := services.NewArtifactLoader(fetcher, settings.Artifact)
	searchService := services.NewSearchService(loader, settings.Search)

	qw, err := newWorker(settings.Search, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if qw != nil {
		searchService.SetWorker(qw)
	}

	indexService := services.NewIndexService(
		artifact.NewDirSource(settings.Index.InputDir),
		normalisers.Default(),
		artifact.NewFileWriter(),
		settings.Index,
	)

	s := &cli.Services{
		Search:   searchService,
		Index:    indexService,
		Settings: settingsService,
		ServeWorker: func(ctx context.Context, r io.Reader, w io.Writer) error {
			return worker.Serve(ctx, r, w, newHandler(settings.Search))
		},
		Close: searchService.Close,
	}
	if ff, ok := fetcher.(*artifact.FileFetcher); ok {
		s.Watch = watchArtifact(ff, settings.Artifact.Locations, searchService)
	}
	return s, nil
}

// newFetcher reads over HTTP when a base URL is configured and from the
// site root otherwise.
func newFetcher(cfg domain.ArtifactSettings) (driven.ArtifactFetcher, error) {
	if cfg.BaseURL == "" {
		return artifact.NewFileFetcher(cfg.Root), nil
	}
	f, err := artifact.NewHTTPFetcher(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func newHandler(cfg domain.SearchSettings) *worker.Handler {
	return worker.NewHandler(cfg.TokenChunkSize,
		engine.WithWeights(cfg.Weights),
		engine.WithPruning(cfg.TokenMapPruning),
		engine.WithSnippetWidth(cfg.SnippetWidth),
	)
}

// newWorker returns the configured query worker, or nil for "none".
func newWorker(cfg domain.SearchSettings, configPath string) (driven.QueryWorker, error) {
	switch cfg.Worker {
	case domain.WorkerKindNone:
		return nil, nil
	case domain.WorkerKindProcess:
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		// The child must score with the same configuration.
		var args []string
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		args = append(args, "worker")
		return worker.NewProcessWorker(worker.WithCommand(exe, args...)), nil
	default:
		return worker.NewLocalWorker(newHandler(cfg)), nil
	}
}

// watchArtifact follows the first artifact location that exists on disk.
func watchArtifact(
	fetcher *artifact.FileFetcher, locations []string, search *services.SearchService,
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		path, ok := lo.Find(lo.Map(locations, func(l string, _ int) string {
			return fetcher.Resolve(l)
		}), func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		})
		if !ok {
			return errors.New("no artifact to watch")
		}

		w := artifact.NewWatcher(artifact.DefaultSettleDelay)
		defer func() { _ = w.Close() }()

		changes, err := w.Watch(ctx, path)
		if err != nil {
			return err
		}
		search.Follow(ctx, changes)
		return nil
	}
}
