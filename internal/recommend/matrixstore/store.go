package matrixstore

import (
	"context"
	"errors"
	"time"

	"github.com/iishyfishyy/yehdekho/internal/similarity"
)

// ErrNotFound is returned by Get when no entry exists for a key
var ErrNotFound = errors.New("matrix not cached")

// Store caches similarity matrices keyed by corpus fingerprint
type Store interface {
	// Get returns the entry stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores an entry, replacing any entry with the same key
	Put(ctx context.Context, entry *Entry) error

	// Delete removes an entry by key
	Delete(ctx context.Context, key string) error

	// Clear removes all entries
	Clear(ctx context.Context) error

	// Count returns the number of stored entries
	Count() int
}

// Entry is a cached similarity matrix together with the vocabulary it was built from
type Entry struct {
	Key       string
	Terms     []string
	Matrix    *similarity.Matrix
	CreatedAt time.Time
}
