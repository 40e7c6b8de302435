// Package dedupe tracks frame submissions already applied to a session so
// client retries are acknowledged without reprocessing.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxSize bounds the number of remembered keys.
const DefaultMaxSize = 50000

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	// ForgetSession drops every key belonging to sessionID.
	ForgetSession(ctx context.Context, sessionID string) int

	Size() int64
}

// FrameKey builds the idempotency key for one frame of one session.
func FrameKey(sessionID string, frameIndex int64) string {
	return sessionID + "/" + strconv.FormatInt(frameIndex, 10)
}

// ringDeduper keeps keys in insertion order and evicts the oldest once full.
// maxSize <= 0 disables eviction.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> slot in ring
	ring    []string
	head    int // next slot to overwrite once full
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	if len(d.ring) < d.maxSize {
		d.seen[key] = len(d.ring)
		d.ring = append(d.ring, key)
		return false
	}

	// Full: overwrite the oldest slot. Slots freed by Unrecord hold "".
	if old := d.ring[d.head]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.head] = key
	d.seen[key] = d.head
	d.head = (d.head + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forget(key)
}

func (d *ringDeduper) ForgetSession(_ context.Context, sessionID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	prefix := sessionID + "/"
	var n int
	for key := range d.seen {
		if strings.HasPrefix(key, prefix) {
			d.forget(key)
			n++
		}
	}
	return n
}

// forget must be called with d.mu held.
func (d *ringDeduper) forget(key string) {
	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
