// Package sink stores the chunks produced by stream executors, keyed by
// object id.
package sink

import (
	"context"
	"io"

	"github.com/aryankumar/fanout/internal/objectid"
)

// Driver defines how chunks reach their backing storage
type Driver interface {
	// Put writes the chunk body under id
	Put(ctx context.Context, id objectid.ID, body io.Reader, size int64) error

	// Get returns a ReadCloser streaming the chunk back
	Get(ctx context.Context, id objectid.ID) (io.ReadCloser, error)

	// Delete removes the chunk; deleting a missing chunk is not an error
	Delete(ctx context.Context, id objectid.ID) error

	// Name identifies the driver in logs and results
	Name() string
}
