// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nishisan-dev/bipbuf/internal/bipbuffer"
)

// Handle is the producer-facing endpoint of a spawned drain worker. It
// is cloneable: every clone shares the same underlying buffer and
// notifier, and the worker's notifier channel is closed only once the
// last live Handle calls Close (spec.md §4.3's "all Handles dropped").
type Handle struct {
	writer   *bipbuffer.Writer
	reader   *bipbuffer.Reader
	notifier chan struct{}
	refs     *int32
	wg       *sync.WaitGroup
	metrics  *Metrics
}

// Len reports the number of unread bytes currently buffered, for use
// by periodic stats reporting. Safe to call concurrently with writes
// and the worker's own draining.
func (h *Handle) Len() int {
	return h.reader.Len()
}

// Spawn creates a buffer of the requested capacity, starts one worker
// goroutine draining it to sink, and returns the initial Handle. The
// worker runs until every cloned Handle has been Closed; ctx cancellation
// additionally unblocks a worker parked on sink I/O only insofar as the
// sink itself honors ctx (the worker loop's own blocking points —
// notifier receive and sink I/O — are otherwise uninterruptible by
// design, matching spec.md §5's "no cancellation at the core level").
func Spawn(ctx context.Context, capacity int, s Sink, logger *slog.Logger, metrics *Metrics) *Handle {
	reader, writer := bipbuffer.New(capacity)

	notifier := make(chan struct{}, 1)
	var refs int32 = 1
	var wg sync.WaitGroup
	wg.Add(1)

	go runWorker(ctx, reader, s, logger, metrics, notifier, &wg)

	return &Handle{
		writer:   writer,
		reader:   reader,
		notifier: notifier,
		refs:     &refs,
		wg:       &wg,
		metrics:  metrics,
	}
}

// Clone returns a new Handle referencing the same worker. Close must be
// called once per clone (including the original); the worker's
// notifier is closed only when the last clone's Close runs.
func (h *Handle) Clone() *Handle {
	atomic.AddInt32(h.refs, 1)
	return &Handle{
		writer:   h.writer.Clone(),
		reader:   h.reader,
		notifier: h.notifier,
		refs:     h.refs,
		wg:       h.wg,
		metrics:  h.metrics,
	}
}

// Write is best-effort: it silently drops the payload if the buffer is
// full (spec.md §6). A successful append triggers a non-blocking
// notify; since the notifier has capacity 1, redundant notifications
// while the worker is already pending wake-up are coalesced.
func (h *Handle) Write(p []byte) {
	if !h.writer.TryWrite(p) {
		return
	}
	select {
	case h.notifier <- struct{}{}:
	default:
		h.metrics.recordCoalesced()
	}
}

// Close releases this Handle. Once every clone has called Close, the
// worker's notifier is closed, which causes the worker to perform its
// final drain pass, flush the sink, and exit. Only the Close call that
// observes the last reference (refs drops to zero) blocks for that
// exit (the "scope joins" guarantee of spec.md §4.3); earlier Close
// calls on other clones return immediately, since the worker can't
// have exited yet and nothing would ever close the notifier to unblock
// them.
func (h *Handle) Close() {
	if atomic.AddInt32(h.refs, -1) == 0 {
		close(h.notifier)
		h.wg.Wait()
	}
}

func runWorker(ctx context.Context, r *bipbuffer.Reader, s Sink, logger *slog.Logger, metrics *Metrics, notifier chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	drainAll := func() {
		for {
			lease, ok, err := r.Read()
			if err != nil {
				// A defensive check (spec.md's "at most one outstanding
				// lease") tripped — this worker is the only reader, so
				// it can only mean a programming bug upstream.
				logger.Error("drain worker: unexpected read error", "error", err)
				return
			}
			if !ok {
				metrics.setOccupancy(0)
				return
			}

			view := lease.View()
			if _, err := s.Write(view); err != nil {
				logger.Error("drain worker: sink write failed", "error", err, "bytes", len(view))
				metrics.recordDrainError()
			} else {
				metrics.recordDrained(len(view))
			}
			metrics.setOccupancy(r.Len())
			lease.Release()
		}
	}

	for range notifier {
		drainAll()
	}

	// Final drain pass: a writer may have appended and notified after
	// the previous drain emptied the buffer but before the close
	// signal was observed (spec.md §4.3's shutdown correctness
	// argument).
	drainAll()

	if err := s.Flush(); err != nil {
		logger.Error("drain worker: sink flush failed", "error", err)
		metrics.recordFlushError()
	}
}
