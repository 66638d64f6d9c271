package coalesce

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// pruneThreshold is the map size above which expired keys are swept.
const pruneThreshold = 4096

type entry struct {
	acquiredAt time.Time
	window     time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.acquiredAt) >= e.window
}

// Local is an in-process Coalescer.
type Local struct {
	entries *xsync.Map[string, entry]
	now     func() time.Time
}

var _ Coalescer = (*Local)(nil)

// NewLocal creates an in-process coalescer.
func NewLocal() *Local {
	return &Local{
		entries: xsync.NewMap[string, entry](),
		now:     time.Now,
	}
}

// Acquire implements Coalescer.
func (l *Local) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	now := l.now()

	acquired := false
	l.entries.Compute(key, func(old entry, loaded bool) (entry, xsync.ComputeOp) {
		if loaded && !old.expired(now) {
			return old, xsync.CancelOp
		}
		acquired = true
		return entry{acquiredAt: now, window: window}, xsync.UpdateOp
	})

	if l.entries.Size() > pruneThreshold {
		l.Prune()
	}
	return acquired, nil
}

// Prune removes expired keys.
func (l *Local) Prune() {
	now := l.now()
	l.entries.Range(func(key string, e entry) bool {
		if e.expired(now) {
			l.entries.Compute(key, func(cur entry, loaded bool) (entry, xsync.ComputeOp) {
				if loaded && cur.expired(now) {
					return cur, xsync.DeleteOp
				}
				return cur, xsync.CancelOp
			})
		}
		return true
	})
}

// Len returns the number of tracked keys.
func (l *Local) Len() int {
	return l.entries.Size()
}
