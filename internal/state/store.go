package state

import (
	"context"
	"time"
)

// Store is a small key/value store for operational checkpoints.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Stamped is implemented by stores that record when each key was written.
type Stamped interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}
