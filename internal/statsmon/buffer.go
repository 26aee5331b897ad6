// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package statsmon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// BufferStatsSource reports on the current state of a drained buffer.
// bipbuffer.Reader and sink.Handle both satisfy this shape trivially
// (Len() int); kept as an interface here so statsmon doesn't import
// either package directly.
type BufferStatsSource interface {
	Len() int
}

// StatsMonitor runs a single recurring housekeeping job on a cron
// schedule, logging buffer occupancy. It collapses the teacher's
// Scheduler (one cron entry per backup job) down to one recurring
// entry, since there is exactly one buffer to watch per relay
// process.
type StatsMonitor struct {
	cron      *cron.Cron
	logger    *slog.Logger
	source    BufferStatsSource
	startTime time.Time
}

// NewStatsMonitor creates a StatsMonitor that logs buffer occupancy on
// the given cron schedule (standard five-field cron syntax or a
// descriptor such as "@every 30s", as accepted by robfig/cron).
func NewStatsMonitor(schedule string, source BufferStatsSource, logger *slog.Logger) (*StatsMonitor, error) {
	sm := &StatsMonitor{
		logger:    logger.With("component", "stats_monitor"),
		source:    source,
		startTime: time.Now(),
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc(schedule, sm.report); err != nil {
		return nil, fmt.Errorf("statsmon: scheduling report job %q: %w", schedule, err)
	}
	sm.cron = c
	return sm, nil
}

// Start begins the cron scheduler.
func (sm *StatsMonitor) Start() {
	sm.logger.Info("stats monitor started")
	sm.cron.Start()
}

// Stop stops the scheduler and waits (bounded by ctx) for any
// in-flight report to finish.
func (sm *StatsMonitor) Stop(ctx context.Context) {
	stopCtx := sm.cron.Stop()
	select {
	case <-stopCtx.Done():
		sm.logger.Info("stats monitor stopped")
	case <-ctx.Done():
		sm.logger.Warn("stats monitor stop timed out")
	}
}

func (sm *StatsMonitor) report() {
	sm.logger.Info("buffer stats",
		"uptime_s", time.Since(sm.startTime).Seconds(),
		"unread_bytes", sm.source.Len(),
	)
}
