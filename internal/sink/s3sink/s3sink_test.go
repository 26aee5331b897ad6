// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package s3sink

import (
	"testing"
	"time"
)

func TestSink_ObjectKey(t *testing.T) {
	s := &Sink{prefix: "backups/", now: func() time.Time {
		return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	}}

	key := s.objectKey()
	want := "backups/20260731T120000.000000000.bin"
	if key != want {
		t.Fatalf("expected %q, got %q", want, key)
	}
}

func TestSink_FlushOnEmptyBufferIsNoOp(t *testing.T) {
	s := &Sink{now: time.Now}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush on empty sink should be a no-op, got %v", err)
	}
}

func TestSink_WriteAccumulates(t *testing.T) {
	s := &Sink{now: time.Now}
	n, err := s.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("write failed: n=%d err=%v", n, err)
	}
	if s.buf.String() != "hello" {
		t.Fatalf("expected buffered %q, got %q", "hello", s.buf.String())
	}
}
