// Package coalesce suppresses repeated work for the same key within a window.
package coalesce

import (
	"context"
	"time"
)

// Coalescer grants at most one acquisition per key per window.
type Coalescer interface {
	// Acquire reports whether the caller won key for the next window.
	// A non-positive window always acquires.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
}
