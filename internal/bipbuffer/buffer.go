// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bipbuffer

import (
	"errors"
	"sync"
)

// ErrLeaseOutstanding is returned by Reader.Read when the previous
// lease obtained from the same Reader has not yet been released.
// spec.md allows at most one outstanding read-lease at a time,
// enforced in other languages by borrowing the Reader exclusively;
// Go has no such mechanism, so this is a defensive runtime check
// rather than part of the core algorithm.
var ErrLeaseOutstanding = errors.New("bipbuffer: previous lease not released")

// core is the shared state behind a buffer's Reader and Writer
// endpoints: the byte region, the tracker, and the mutex guarding
// both. Allocated once at New and never reallocated.
type core struct {
	mu   sync.Mutex
	buf  []byte
	t    *tracker
	size int
}

// New creates a buffer of the given capacity and returns its single
// Reader and an initial Writer (Writer may be freely cloned via
// Writer.Clone — all clones share the same underlying buffer).
// capacity must be greater than zero.
func New(capacity int) (*Reader, *Writer) {
	if capacity <= 0 {
		panic("bipbuffer: capacity must be > 0")
	}
	c := &core{
		buf:  make([]byte, capacity),
		t:    newTracker(capacity),
		size: capacity,
	}
	return &Reader{c: c}, &Writer{c: c}
}

// Writer is the producer endpoint. It is safe for concurrent use by
// multiple goroutines (all calls serialize on the shared mutex); per-
// writer program order is preserved for that writer's own successful
// writes, but there is no ordering guarantee across distinct writers
// beyond whichever acquires the mutex first (spec.md §5, §9).
type Writer struct {
	c *core
}

// Clone returns a new Writer handle sharing the same underlying
// buffer. Use it to hand out independent producer handles without
// sharing a single *Writer value across goroutines.
func (w *Writer) Clone() *Writer {
	return &Writer{c: w.c}
}

// TryWrite attempts to append p atomically. It returns true iff the
// entire payload was accepted; a payload too large for the remaining
// contiguous space either triggers an inversion or is rejected whole —
// partial writes never occur. A zero-length payload is accepted as a
// no-op without touching the tracker.
func (w *Writer) TryWrite(p []byte) bool {
	if len(p) == 0 {
		return true
	}

	w.c.mu.Lock()
	defer w.c.mu.Unlock()

	lease, ok := w.c.t.write(len(p))
	if !ok {
		return false
	}
	copy(w.c.buf[lease.start:lease.start+lease.len], p)
	w.c.t.commit(lease)
	return true
}

// Reader is the single consumer endpoint. It is not cloneable: at most
// one Lease may be outstanding from a Reader at a time.
type Reader struct {
	c           *core
	outstanding bool
}

// Read returns the next contiguous span of unread bytes, if any. It
// returns (nil-ish Lease, false) when the buffer currently holds no
// unread data, and (Lease, false) is never paired with a non-empty
// view — callers should check the boolean, not view length.
//
// Read fails with ErrLeaseOutstanding if the lease from a previous
// Read on this same Reader has not yet been released.
func (r *Reader) Read() (Lease, bool, error) {
	if r.outstanding {
		return Lease{}, false, ErrLeaseOutstanding
	}

	r.c.mu.Lock()
	lease, ok := r.c.t.read()
	if !ok {
		r.c.mu.Unlock()
		return Lease{}, false, nil
	}
	view := r.c.buf[lease.start : lease.start+lease.len]
	r.c.mu.Unlock()

	r.outstanding = true
	return Lease{
		c:     r.c,
		r:     r,
		lease: lease,
		view:  view,
	}, true, nil
}

// Lease is a scope-bound borrow of a contiguous range of buffer bytes.
// Its View is stable and safe to read without holding the buffer's
// mutex for the lease's entire lifetime — concurrent writers can only
// be granted ranges disjoint from an outstanding read lease (spec.md
// §4.2's disjointness argument). Callers must call Release (directly,
// or via Close to satisfy io.Closer) exactly once.
type Lease struct {
	c        *core
	r        *Reader
	lease    readLease
	view     []byte
	released bool
}

// View returns the contiguous byte slice borrowed by this lease. The
// slice is only valid until Release is called.
func (l *Lease) View() []byte {
	return l.view
}

// Release ends the lease's scope, advancing the tracker's read cursor
// (and collapsing state per the catch-up/tail-drained-flip rules)
// under the buffer's mutex. Calling Release more than once is a
// programming error (spec.md §7): the second call panics rather than
// silently corrupting tracker state.
func (l *Lease) Release() {
	if l.released {
		panic("bipbuffer: lease already released")
	}
	l.released = true

	l.c.mu.Lock()
	l.c.t.release(l.lease)
	l.c.mu.Unlock()

	l.r.outstanding = false
}

// Close is an io.Closer-compatible alias for Release, so a Lease can
// be used with `defer lease.Close()` at the call site.
func (l *Lease) Close() error {
	l.Release()
	return nil
}

// unreadLen reports the number of bytes currently unread by the tracker,
// combining any outstanding lease with unleased unread data. It is a
// diagnostic used by the stats monitor, not part of the core protocol.
func (b *core) unreadLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.t.unreadLen()
}

// Len reports the number of bytes currently unread in the buffer.
func (buf *Reader) Len() int {
	return buf.c.unreadLen()
}

// Cap reports the buffer's fixed capacity.
func (w *Writer) Cap() int {
	return w.c.size
}
