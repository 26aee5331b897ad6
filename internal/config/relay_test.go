// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadRelayConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "sink:\n  type: stdout\n")

	cfg, err := LoadRelayConfig(path)
	if err != nil {
		t.Fatalf("LoadRelayConfig: %v", err)
	}

	if cfg.Buffer.CapacityRaw != 1024*1024 {
		t.Errorf("expected default capacity 1mb, got %d", cfg.Buffer.CapacityRaw)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("expected default logging info/json, got %+v", cfg.Logging)
	}
	if cfg.Stats.Schedule != "@every 1m" {
		t.Errorf("expected default stats schedule, got %q", cfg.Stats.Schedule)
	}
}

func TestLoadRelayConfig_FileSinkRequiresPath(t *testing.T) {
	path := writeConfig(t, "sink:\n  type: file\n")
	if _, err := LoadRelayConfig(path); err == nil {
		t.Fatalf("expected error for file sink without a path")
	}
}

func TestLoadRelayConfig_S3SinkRequiresBucketAndRegion(t *testing.T) {
	path := writeConfig(t, "sink:\n  type: s3\n  s3:\n    bucket: my-bucket\n")
	if _, err := LoadRelayConfig(path); err == nil {
		t.Fatalf("expected error for s3 sink without a region")
	}
}

func TestLoadRelayConfig_ZstdSinkRequiresPath(t *testing.T) {
	path := writeConfig(t, "sink:\n  type: zstd\n")
	if _, err := LoadRelayConfig(path); err == nil {
		t.Fatalf("expected error for zstd sink without a path")
	}
}

func TestLoadRelayConfig_UnknownSinkType(t *testing.T) {
	path := writeConfig(t, "sink:\n  type: carrier-pigeon\n")
	if _, err := LoadRelayConfig(path); err == nil {
		t.Fatalf("expected error for unknown sink type")
	}
}

func TestLoadRelayConfig_FullExample(t *testing.T) {
	path := writeConfig(t, `
buffer:
  capacity: 4mb
sink:
  type: gzip
  path: /var/log/bipbufd/out.gz
logging:
  level: debug
  format: text
stats:
  schedule: "*/5 * * * *"
ingest:
  bytes_per_sec: 10mb
`)

	cfg, err := LoadRelayConfig(path)
	if err != nil {
		t.Fatalf("LoadRelayConfig: %v", err)
	}
	if cfg.Buffer.CapacityRaw != 4*1024*1024 {
		t.Errorf("expected 4mb capacity, got %d", cfg.Buffer.CapacityRaw)
	}
	if cfg.Sink.Path != "/var/log/bipbufd/out.gz" {
		t.Errorf("expected sink path set, got %q", cfg.Sink.Path)
	}
	if cfg.Ingest.BytesPerSecRaw != 10*1024*1024 {
		t.Errorf("expected 10mb ingest rate, got %d", cfg.Ingest.BytesPerSecRaw)
	}
}

func TestParseByteSize(t *testing.T) {
	cases := map[string]int64{
		"0":    0,
		"100":  100,
		"1kb":  1024,
		"2mb":  2 * 1024 * 1024,
		"1gb":  1024 * 1024 * 1024,
		"10b":  10,
	}
	for in, want := range cases {
		got, err := ParseByteSize(in)
		if err != nil {
			t.Errorf("ParseByteSize(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseByteSize_Invalid(t *testing.T) {
	if _, err := ParseByteSize("not-a-size"); err == nil {
		t.Fatalf("expected error for invalid size string")
	}
	if _, err := ParseByteSize(""); err == nil {
		t.Fatalf("expected error for empty size string")
	}
}
