// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Command bipbufd is a relay binary that reads bytes from stdin,
// paces them through a rate limiter, appends them to a bip buffer,
// and drains the buffer to a configured sink in the background — the
// same "one main that assembles the ambient + domain stack" shape as
// the teacher's own cmd/nbackup-agent and cmd/nbackup-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/bipbuf/internal/config"
	"github.com/nishisan-dev/bipbuf/internal/logging"
	"github.com/nishisan-dev/bipbuf/internal/ratelimit"
	"github.com/nishisan-dev/bipbuf/internal/sink"
	"github.com/nishisan-dev/bipbuf/internal/sink/filesink"
	"github.com/nishisan-dev/bipbuf/internal/sink/gzipsink"
	"github.com/nishisan-dev/bipbuf/internal/sink/s3sink"
	"github.com/nishisan-dev/bipbuf/internal/sink/zstdsink"
	"github.com/nishisan-dev/bipbuf/internal/statsmon"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "/etc/bipbufd/relay.yaml", "path to relay config file")
	flag.Parse()

	cfg, err := config.LoadRelayConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.FilePath)
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, closer, err := buildSink(ctx, cfg)
	if err != nil {
		logger.Error("failed to build sink", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	metrics := sink.NewMetrics(prometheus.DefaultRegisterer)

	handle := sink.Spawn(ctx, int(cfg.Buffer.CapacityRaw), s, logger, metrics)

	statsMon, err := statsmon.NewStatsMonitor(cfg.Stats.Schedule, handle, logger)
	if err != nil {
		logger.Error("failed to start stats monitor", "error", err)
		os.Exit(1)
	}
	statsMon.Start()

	sysMon := statsmon.NewSystemMonitor(logger)
	sysMon.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	ingest := ratelimit.NewThrottledWriter(ctx, handleWriter{handle}, cfg.Ingest.BytesPerSecRaw)
	if _, err := io.Copy(ingest, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error("reading stdin", "error", err)
	}

	logger.Info("closing handle, draining remaining buffered bytes")
	handle.Close()

	statsMon.Stop(context.Background())
	sysMon.Stop()
}

// handleWriter adapts sink.Handle's best-effort Write(p) into an
// io.Writer so it can sit behind ratelimit.ThrottledWriter.
type handleWriter struct{ h *sink.Handle }

func (w handleWriter) Write(p []byte) (int, error) {
	w.h.Write(p)
	return len(p), nil
}

func buildSink(ctx context.Context, cfg *config.RelayConfig) (sink.Sink, io.Closer, error) {
	switch cfg.Sink.Type {
	case "stdout":
		return filesink.Stdout(), nil, nil
	case "file":
		s, err := filesink.Open(cfg.Sink.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "gzip":
		f, err := filesink.Open(cfg.Sink.Path)
		if err != nil {
			return nil, nil, err
		}
		gz, err := gzipsink.New(f, 0)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz, nil
	case "zstd":
		f, err := filesink.Open(cfg.Sink.Path)
		if err != nil {
			return nil, nil, err
		}
		zs, err := zstdsink.New(f, 0)
		if err != nil {
			return nil, nil, err
		}
		return zs, zs, nil
	case "s3":
		client, err := s3sink.NewClient(ctx, s3sink.Config{
			Endpoint:        cfg.Sink.S3.Endpoint,
			Region:          cfg.Sink.S3.Region,
			Bucket:          cfg.Sink.S3.Bucket,
			KeyPrefix:       cfg.Sink.S3.KeyPrefix,
			AccessKeyID:     cfg.Sink.S3.AccessKeyID,
			SecretAccessKey: cfg.Sink.S3.SecretAccessKey,
			ForcePathStyle:  cfg.Sink.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3sink.New(client, cfg.Sink.S3.Bucket, cfg.Sink.S3.KeyPrefix), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink type %q", cfg.Sink.Type)
	}
}
