package object

import (
	"context"
	"io"
)

// ObjectStore resolves archive file keys to readable content.
type ObjectStore interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Localize returns an absolute filesystem path holding the object's bytes.
	// Callers must invoke release once they are done with the path.
	Localize(ctx context.Context, storageKey string) (path string, release func(), err error)
}
