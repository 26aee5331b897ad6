// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package zstdsink adapts any io.WriteCloser into a sink.Sink by
// compressing the drained byte stream with zstd before it reaches the
// underlying destination. This is the sibling of gzipsink for the
// other compression identifier the wire format reserves.
package zstdsink

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Sink wraps an io.WriteCloser destination with a zstd.Encoder.
type Sink struct {
	dest io.WriteCloser
	enc  *zstd.Encoder
}

// New wraps dest with a zstd encoder at the given level
// (zstd.SpeedDefault if level is 0).
func New(dest io.WriteCloser, level zstd.EncoderLevel) (*Sink, error) {
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(dest, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("zstdsink: creating encoder: %w", err)
	}
	return &Sink{dest: dest, enc: enc}, nil
}

// Write compresses p and forwards it to the underlying destination.
func (s *Sink) Write(p []byte) (int, error) {
	return s.enc.Write(p)
}

// Flush flushes any buffered compressed bytes to the destination
// without closing the frame, so the encoder remains usable for
// further writes.
func (s *Sink) Flush() error {
	if err := s.enc.Flush(); err != nil {
		return fmt.Errorf("zstdsink: flush: %w", err)
	}
	return nil
}

// Close finalizes the zstd frame and closes the underlying
// destination.
func (s *Sink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("zstdsink: closing encoder: %w", err)
	}
	return s.dest.Close()
}
