package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aryankumar/fanout/internal/objectid"
	"github.com/aryankumar/fanout/internal/util"
)

// LocalFS stores chunks on local disk under a two-level hashed directory
// layout, e.g. <base>/00/00/000043c5c6d5e646
type LocalFS struct {
	BaseDir string
}

// NewLocalFS creates the base directory if needed
func NewLocalFS(baseDir string) (*LocalFS, error) {
	baseDir = util.ExpandFullPath(baseDir)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalFS{BaseDir: baseDir}, nil
}

// Name implements Driver
func (d *LocalFS) Name() string {
	return "local"
}

// Path returns where the chunk with the given id is stored
func (d *LocalFS) Path(id objectid.ID) string {
	key := id.String()
	return filepath.Join(d.BaseDir, key[0:2], key[2:4], key)
}

// Put implements Driver. The chunk is written to a temporary file and renamed
// into place so readers never see a partial chunk.
func (d *LocalFS) Put(ctx context.Context, id objectid.ID, body io.Reader, size int64) error {
	fullPath := d.Path(id)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create hashed directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(fullPath), "."+id.String()+".*")
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	tmpPath := file.Name()

	if _, err := io.Copy(file, body); err != nil {
		cerr := file.Close()
		os.Remove(tmpPath)
		return util.CombineErrors(fmt.Errorf("failed to save chunk %s: %w", id, err), cerr)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close chunk %s: %w", id, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit chunk %s: %w", id, err)
	}
	return nil
}

// Get implements Driver
func (d *LocalFS) Get(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	f, err := os.Open(d.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("chunk %s: %w", id, util.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk %s: %w", id, err)
	}
	return f, nil
}

// Delete implements Driver
func (d *LocalFS) Delete(ctx context.Context, id objectid.ID) error {
	err := os.Remove(d.Path(id))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to delete chunk %s: %w", id, err)
}
