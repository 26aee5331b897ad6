// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package statsmon

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fixedSource struct{ n int }

func (f fixedSource) Len() int { return f.n }

func TestStatsMonitor_ReportsOnSchedule(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sm, err := NewStatsMonitor("@every 10ms", fixedSource{n: 42}, logger)
	if err != nil {
		t.Fatalf("NewStatsMonitor: %v", err)
	}

	sm.Start()
	time.Sleep(30 * time.Millisecond)
	sm.Stop(context.Background())
}

func TestStatsMonitor_RejectsInvalidSchedule(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewStatsMonitor("not a schedule", fixedSource{}, logger); err == nil {
		t.Fatalf("expected an error for an invalid cron schedule")
	}
}
