package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure FileFetcher implements the interface.
var _ driven.ArtifactFetcher = (*FileFetcher)(nil)

// FileFetcher opens artifacts from the local site directory.
type FileFetcher struct {
	root string
}

// NewFileFetcher creates a fetcher resolving locations under root.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

// Resolve maps a location to a file path. Root-relative locations ("/x")
// and relative ones ("x") both resolve under the site root, the way a page
// served from the root would see them.
func (f *FileFetcher) Resolve(location string) string {
	rel := filepath.FromSlash(strings.TrimLeft(location, "/"))
	if f.root == "" {
		return filepath.Clean(rel)
	}
	return filepath.Join(f.root, rel)
}

// Open opens the artifact at location and reports its size.
func (f *FileFetcher) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	path := f.Resolve(location)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%s: %w", path, domain.ErrArtifactNotFound)
		}
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, 0, fmt.Errorf("%s is a directory: %w", path, domain.ErrArtifactNotFound)
	}
	return file, info.Size(), nil
}
