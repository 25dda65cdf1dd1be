// Package proximity carries a polar obstacle map from the frame-processing
// loop to the telemetry emitter: an atomically published snapshot shared
// between the two, a fixed-rate scheduler on the emitting side, and the
// MAVLink payload builders.
package proximity

import "sync"

// Snapshot is one published obstacle map: the per-sector distances in
// centimeters and the capture timestamp of the frame they were reduced from.
type Snapshot struct {
	Distances   []uint16
	TimestampUS int64
}

// Latest holds the most recently published snapshot. The frame-processing
// loop is the single writer; any number of readers may call Read
// concurrently. Both sides copy through an internal buffer under a short
// lock, so a reader never observes a half-written map and never aliases
// memory the writer will touch again.
type Latest struct {
	mu        sync.Mutex
	distances []uint16
	ts        int64
	published bool
}

// NewLatest creates an empty holder for maps of the given sector count.
func NewLatest(sectors int) *Latest {
	return &Latest{distances: make([]uint16, sectors)}
}

// Publish replaces the visible snapshot with a copy of distances. The caller
// keeps ownership of the passed slice and may reuse it for the next cycle.
func (l *Latest) Publish(distances []uint16, timestampUS int64) {
	l.mu.Lock()
	copy(l.distances, distances)
	l.ts = timestampUS
	l.published = true
	l.mu.Unlock()
}

// Read returns a copy of the most recent snapshot. The second return value
// is false until the first Publish has happened.
func (l *Latest) Read() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.published {
		return Snapshot{}, false
	}

	out := make([]uint16, len(l.distances))
	copy(out, l.distances)
	return Snapshot{Distances: out, TimestampUS: l.ts}, true
}
