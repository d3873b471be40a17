// Package dedupe detects track files that were already seen in a run.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen content fingerprints.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes key so a later SeenAndRecord treats it as new.
	Forget(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in a map. In bounded mode (maxSize > 0) it also
// keeps keys in a ring and, when full, evicts the key in the slot after the
// last insert. Without Forget calls that is the oldest key.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot, -1 when unbounded
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}

	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		d.size.Add(1)
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	} else {
		d.skipLive()
	}
	slot := d.next
	d.ring[slot] = key
	d.seen[key] = slot
	d.next = (d.next + 1) % d.maxSize
	d.size.Add(1)
	return false
}

// Forget implements Deduper.
func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
	d.size.Add(-1)
}

// live reports whether slot holds a recorded key. Must be called with d.mu held.
func (d *inMemoryDeduper) live(slot int) bool {
	owner, ok := d.seen[d.ring[slot]]
	return ok && owner == slot
}

// skipLive moves d.next to the first free slot. Must be called with d.mu held
// and the ring not full.
func (d *inMemoryDeduper) skipLive() {
	for d.live(d.next) {
		d.next = (d.next + 1) % d.maxSize
	}
}

// evictOldest drops the key in the next ring slot. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	// Forgotten keys leave holes; skip forward to the oldest live slot.
	for i := 0; i < d.maxSize; i++ {
		slot := (d.next + i) % d.maxSize
		if d.live(slot) {
			delete(d.seen, d.ring[slot])
			d.ring[slot] = ""
			d.next = slot
			d.size.Add(-1)
			return
		}
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
