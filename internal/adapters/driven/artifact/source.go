package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure DirSource implements the interface.
var _ driven.PageSource = (*DirSource)(nil)

// DirSource lists documentation pages under a directory.
// Hidden files and directories are skipped.
type DirSource struct {
	root string
}

// NewDirSource creates a page source rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// List returns every regular file under the root as a sorted slash path.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Read returns the contents of source.
func (s *DirSource) Read(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(source) {
		return nil, fmt.Errorf("invalid page path %q", source)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(source)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return data, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
