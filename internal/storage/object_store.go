package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject when no object exists under the
// requested key.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that are not bare filenames, so callers
// can report them as client errors rather than internal failures.
var ErrInvalidKey = errors.New("invalid object key")

type Object struct {
	Name string
	Size int64
}

// ObjectStore is a flat-namespace store for uploaded imaging files. Keys are
// the original filenames; there is no index, listings always reflect the
// current contents.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) ([]byte, error)

	DeleteObject(ctx context.Context, key string) error

	ListObjects(ctx context.Context) ([]Object, error)
}
