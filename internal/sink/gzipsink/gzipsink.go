// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package gzipsink adapts any io.WriteCloser into a sink.Sink by
// compressing the drained byte stream with a parallel gzip writer
// before it reaches the underlying destination.
package gzipsink

import (
	"fmt"
	"io"

	"github.com/klauspost/pgzip"
)

// Sink wraps an io.WriteCloser destination (a file, typically) with a
// pgzip.Writer. Write compresses and forwards; Flush flushes the gzip
// stream's internal buffering into the destination without closing
// it, so the sink remains usable across multiple Flush calls.
type Sink struct {
	dest io.WriteCloser
	gz   *pgzip.Writer
}

// New wraps dest with a parallel gzip writer at the given compression
// level (pgzip.DefaultCompression if level is 0).
func New(dest io.WriteCloser, level int) (*Sink, error) {
	if level == 0 {
		level = pgzip.DefaultCompression
	}
	gz, err := pgzip.NewWriterLevel(dest, level)
	if err != nil {
		return nil, fmt.Errorf("gzipsink: creating writer: %w", err)
	}
	return &Sink{dest: dest, gz: gz}, nil
}

// Write compresses p and forwards it to the underlying destination.
func (s *Sink) Write(p []byte) (int, error) {
	return s.gz.Write(p)
}

// Flush flushes any buffered compressed bytes to the destination. The
// drain worker calls this once at shutdown; it does not close the
// gzip stream (which would write the final trailer and make the
// writer unusable), since the worker may still be mid-lifetime when a
// caller wants an interim flush. Call Close to finish the stream.
func (s *Sink) Flush() error {
	if err := s.gz.Flush(); err != nil {
		return fmt.Errorf("gzipsink: flush: %w", err)
	}
	return nil
}

// Close finalizes the gzip stream (writing its trailer) and closes
// the underlying destination. Call this after the drain worker's
// Handle has been closed and joined.
func (s *Sink) Close() error {
	if err := s.gz.Close(); err != nil {
		return fmt.Errorf("gzipsink: closing gzip stream: %w", err)
	}
	return s.dest.Close()
}
