// Package storage keeps generated files, such as sales exports, on a local
// directory or an S3-compatible bucket.
//
//	storage.Connect(ctx)
//	disk := storage.Default()
//	err := disk.Put(ctx, "reports/1/sales.csv", bytes.NewReader(data), int64(len(data)), "text/csv")
//	url := disk.URL("reports/1/sales.csv")
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Open for a missing file.
var ErrNotExist = errors.New("storage: file does not exist")

// File describes a stored file.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Disk is implemented by every storage driver. Paths are slash separated
// and relative to the disk root.
type Disk interface {
	// Put stores size bytes read from r at path, replacing any existing file.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Open returns the file's content. The caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns the files directly inside dir. A missing dir is empty.
	List(ctx context.Context, dir string) ([]File, error)

	// Delete removes path. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// URL returns the public address of path.
	URL(path string) string
}
