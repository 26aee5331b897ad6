// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package filesink implements the simplest sink.Sink: appending
// drained bytes to a plain *os.File, or writing them to os.Stdout
// through a sink whose Flush is a no-op.
package filesink

import (
	"fmt"
	"os"

	"github.com/nishisan-dev/bipbuf/internal/sink"
)

// Sink wraps an *os.File, calling Sync on Flush.
type Sink struct {
	f *os.File
}

// Open creates or appends to the file at path.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filesink: opening %s: %w", path, err)
	}
	return &Sink{f: f}, nil
}

// Write appends p to the file.
func (s *Sink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Flush syncs the file to stable storage.
func (s *Sink) Flush() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("filesink: sync: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *Sink) Close() error {
	return s.f.Close()
}

// Stdout wraps os.Stdout as a Sink whose Flush is a no-op (stdout
// can't usefully be fsynced).
type stdoutSink struct{}

func (stdoutSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutSink) Flush() error                { return nil }

// Stdout returns the shared stdout sink.
func Stdout() sink.Sink {
	return stdoutSink{}
}
