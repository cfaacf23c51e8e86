package correlator

import (
	"sync"
	"time"

	"github.com/seisline/seisline/internal/domain/notify"
	"github.com/seisline/seisline/internal/domain/quake"
)

// Window is the symmetric timestamp tolerance for pairing a detailed
// bulletin with a quick one. It compares authoring timestamps, never
// arrival times.
const Window = 5 * time.Minute

type pendingEntry struct {
	rec    *quake.Record
	merged bool
	seen   time.Time
}

// Buffer holds quick records awaiting their detailed counterpart. It is the
// only cross-call mutable state in the engine and is guarded by a single
// mutex; nothing network-facing runs under the lock.
type Buffer struct {
	mu      sync.Mutex
	clock   notify.Clock
	entries []*pendingEntry
}

func NewBuffer(clock notify.Clock) *Buffer {
	return &Buffer{clock: clock}
}

// Put registers a freshly parsed quick record as a correlation candidate.
func (b *Buffer) Put(rec *quake.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked()
	b.entries = append(b.entries, &pendingEntry{rec: rec, seen: b.clock.Now()})
}

// Match returns the first-seen unmerged quick record whose authoring
// timestamp falls within Window of authoredAt, marking it merged so it is
// never re-matched. First match wins; later candidates in the window are
// left for subsequent detailed bulletins.
func (b *Buffer) Match(authoredAt time.Time) (*quake.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked()
	for _, e := range b.entries {
		if e.merged {
			continue
		}
		d := authoredAt.Sub(e.rec.AuthoredAt)
		if d < 0 {
			d = -d
		}
		if d <= Window {
			e.merged = true
			return e.rec, true
		}
	}
	return nil, false
}

// Len reports the number of buffered candidates, merged ones included.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// evictLocked drops entries older than twice the window; they can no longer
// match any detailed bulletin worth waiting for.
func (b *Buffer) evictLocked() {
	cutoff := b.clock.Now().Add(-2 * Window)
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.seen.After(cutoff) {
			kept = append(kept, e)
		}
	}
	b.entries = kept
}
