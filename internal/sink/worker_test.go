// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// memSink is an in-memory Sink used only by tests.
type memSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	flushed int
}

func (m *memSink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

func (m *memSink) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

func (m *memSink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_SmokeEndToEnd(t *testing.T) {
	s := &memSink{}
	ctx := context.Background()

	h := Spawn(ctx, 100, s, discardLogger(), nil)
	h.Write([]byte("asdf"))
	h.Write([]byte("pqrs"))
	h.Close()

	if got := s.String(); got != "asdfpqrs" {
		t.Fatalf("expected %q, got %q", "asdfpqrs", got)
	}
	if s.flushed != 1 {
		t.Fatalf("expected exactly one flush, got %d", s.flushed)
	}
}

func TestHandle_DrainsAfterLastNotificationBeforeClose(t *testing.T) {
	// Regression-style test for the post-loop drain pass: write a byte
	// right as Close races the notifier close, and make sure it still
	// reaches the sink.
	s := &memSink{}
	ctx := context.Background()
	h := Spawn(ctx, 100, s, discardLogger(), nil)

	h.Write([]byte("x"))
	time.Sleep(5 * time.Millisecond) // let the worker likely drain once already
	h.Write([]byte("y"))
	h.Close()

	if got := s.String(); got != "xy" {
		t.Fatalf("expected %q, got %q", "xy", got)
	}
}

func TestHandle_ClonedHandlesShareWorker(t *testing.T) {
	s := &memSink{}
	ctx := context.Background()
	h1 := Spawn(ctx, 100, s, discardLogger(), nil)
	h2 := h1.Clone()

	h1.Write([]byte("a"))
	h2.Write([]byte("b"))

	h1.Close() // worker keeps running: h2 still open
	if s.flushed != 0 {
		t.Fatalf("flush must wait for all clones to close")
	}

	h2.Close()
	if s.flushed != 1 {
		t.Fatalf("expected flush after last clone closes")
	}
	if got := s.String(); got != "ab" {
		t.Fatalf("expected %q, got %q", "ab", got)
	}
}

func TestHandle_FullBufferDropsSilently(t *testing.T) {
	// A sink whose Write blocks until the test releases it, so the
	// worker cannot drain the tiny buffer before the second Write.
	gate := make(chan struct{})
	bs := &blockingSink{memSink: &memSink{}, release: gate}
	ctx := context.Background()
	h := Spawn(ctx, 4, bs, discardLogger(), nil)

	h.Write([]byte("abcd")) // fills the 4-byte buffer, wakes the worker
	// Give the worker a moment to enter Write and block on the gate.
	time.Sleep(5 * time.Millisecond)
	h.Write([]byte("e")) // must be dropped silently: buffer is still full

	close(gate)
	h.Close()

	if got := bs.String(); got != "abcd" {
		t.Fatalf("expected only %q delivered, got %q", "abcd", got)
	}
}

type blockingSink struct {
	*memSink
	release chan struct{}
}

func (b *blockingSink) Write(p []byte) (int, error) {
	<-b.release
	return b.memSink.Write(p)
}
