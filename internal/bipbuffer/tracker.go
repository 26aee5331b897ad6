// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package bipbuffer implements a fixed-capacity, single-producer-domain,
// single-consumer-domain bipartite ring buffer. Unlike a plain ring
// buffer indexed by an absolute offset modulo capacity, a bip buffer
// never splits a single read across the physical end of the storage:
// once the write cursor wraps, unread data occupies a tail span and a
// head span, and each is handed to the reader as its own contiguous
// lease.
package bipbuffer

// writeLease is a reservation produced by tracker.write and consumed by
// tracker.commit. It carries no bytes — the buffer layer owns the
// storage. Dropping a lease without commit leaves the tracker unchanged
// only for a non-wrapping grant: a wrap-granting write has already set
// invertedAt, and nothing undoes that.
type writeLease struct {
	start int
	len   int
}

// readLease is a grant produced by tracker.read and consumed by
// tracker.release. Like writeLease it is pure bookkeeping.
type readLease struct {
	start int
	len   int
}

// tracker is the pure offset state machine behind Buffer. It holds no
// bytes and performs no I/O; every method must be called with external
// mutual exclusion (Buffer provides this via its mutex).
//
// State: invertedAt == 0 means "not inverted" (Normal state); a
// positive invertedAt means the buffer is Inverted and valid data
// occupies [readOffset, invertedAt) ∪ [0, writeOffset). Zero is safe
// to reserve as the "not inverted" sentinel because a flip to Inverted
// is only ever taken when writeOffset > 0 (see write below), so
// invertedAt is never set to 0 as a real marker.
type tracker struct {
	cap         int
	writeOffset int
	readOffset  int
	invertedAt  int
}

func newTracker(capacity int) *tracker {
	return &tracker{cap: capacity}
}

// write decides where an n-byte payload may land. It does not copy any
// bytes and does not mutate writeOffset; the caller must follow a
// granted lease with commit before any other tracker call, since the
// returned range is provisional until then.
func (t *tracker) write(n int) (writeLease, bool) {
	inverted := t.invertedAt > 0
	limit := t.cap
	if inverted {
		limit = t.readOffset
	}

	if t.writeOffset+n <= limit {
		return writeLease{start: t.writeOffset, len: n}, true
	}

	if !inverted && n <= t.readOffset {
		// Flip to Inverted: the tail [readOffset, writeOffset) still holds
		// unread data (writeOffset > 0 is implied by n <= readOffset
		// and readOffset <= writeOffset in Normal state unless
		// readOffset == 0, in which case n <= 0 can't grant here
		// since write already checked the simple case above).
		t.invertedAt = t.writeOffset
		return writeLease{start: 0, len: n}, true
	}

	return writeLease{}, false
}

// commit finalizes a previously granted write lease, advancing
// writeOffset past it. Must be called at most once per lease, with no
// other tracker call interleaved since the matching write.
func (t *tracker) commit(w writeLease) {
	t.writeOffset = w.start + w.len
}

// read grants the next contiguous unread span, if any. The read cursor
// is not advanced until the matching release.
func (t *tracker) read() (readLease, bool) {
	end := t.writeOffset
	if t.invertedAt > 0 {
		end = t.invertedAt
	}
	if t.readOffset == end {
		return readLease{}, false
	}
	return readLease{start: t.readOffset, len: end - t.readOffset}, true
}

// release retires a granted read lease, advancing the read cursor and
// collapsing state when the reader has caught up to the writer (catch-
// up reset) or drained the inverted tail (tail-drained flip).
func (t *tracker) release(r readLease) {
	e := r.start + r.len

	switch {
	case e == t.writeOffset && t.invertedAt == 0:
		// Catch-up reset: reader and writer coincide in Normal state.
		t.readOffset = 0
		t.writeOffset = 0
	case t.invertedAt > 0 && e == t.invertedAt:
		// Tail-drained flip: the inverted tail is fully read: the
		// head [0, writeOffset) becomes the new Normal-state data.
		t.readOffset = 0
		t.invertedAt = 0
	default:
		t.readOffset = e
	}
}

// unreadLen reports the number of unread bytes currently tracked,
// independent of lease state. Exposed to the Buffer layer for
// diagnostics and the stats monitor; not part of the core decision
// logic.
func (t *tracker) unreadLen() int {
	if t.invertedAt > 0 {
		return (t.invertedAt - t.readOffset) + t.writeOffset
	}
	return t.writeOffset - t.readOffset
}
