package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure FileWriter implements the interface.
var _ driven.ArtifactWriter = (*FileWriter)(nil)

// FileWriter writes the artifact with a temp file and a rename, so a
// watching search service never reads a half-written file.
type FileWriter struct{}

// NewFileWriter creates a new artifact writer.
func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

// Write replaces the artifact at path with docs.
func (w *FileWriter) Write(ctx context.Context, path string, docs []domain.Document) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if docs == nil {
		docs = []domain.Document{}
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
