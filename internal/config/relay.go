// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package config loads and validates the YAML configuration for the
// bipbufd relay binary, following the teacher's struct-per-section +
// Validate() pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RelayConfig represents the full configuration of the bipbufd relay
// binary.
type RelayConfig struct {
	Buffer  BufferInfo  `yaml:"buffer"`
	Sink    SinkInfo    `yaml:"sink"`
	Logging LoggingInfo `yaml:"logging"`
	Stats   StatsInfo   `yaml:"stats"`
	Ingest  IngestInfo  `yaml:"ingest"`
}

// BufferInfo configures the bipbuffer capacity.
type BufferInfo struct {
	Capacity    string `yaml:"capacity"` // e.g. "1mb", "256kb"
	CapacityRaw int64  `yaml:"-"`
}

// SinkInfo selects and configures the byte sink the drain worker
// writes to.
type SinkInfo struct {
	Type string `yaml:"type"` // "stdout", "file", "gzip", "zstd", "s3"

	// Used when Type == "file", "gzip" or "zstd".
	Path string `yaml:"path"`

	// Used when Type == "s3".
	S3 S3Info `yaml:"s3"`
}

// S3Info configures the S3-backed sink.
type S3Info struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// LoggingInfo contains logging configuration.
type LoggingInfo struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// StatsInfo configures the cron-scheduled buffer stats reporter.
type StatsInfo struct {
	Schedule string `yaml:"schedule"` // standard 5-field cron, or "@every 30s"
}

// IngestInfo configures the relay's producer-side pacing.
type IngestInfo struct {
	BytesPerSec    string `yaml:"bytes_per_sec"` // e.g. "10mb"; empty/0 = unlimited
	BytesPerSecRaw int64  `yaml:"-"`
}

// LoadRelayConfig reads and validates the YAML configuration file at
// path.
func LoadRelayConfig(path string) (*RelayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading relay config: %w", err)
	}

	var cfg RelayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing relay config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating relay config: %w", err)
	}

	return &cfg, nil
}

func (c *RelayConfig) validate() error {
	if c.Buffer.Capacity == "" {
		c.Buffer.Capacity = "1mb"
	}
	capacity, err := ParseByteSize(c.Buffer.Capacity)
	if err != nil {
		return fmt.Errorf("buffer.capacity: %w", err)
	}
	if capacity <= 0 {
		return fmt.Errorf("buffer.capacity must be > 0, got %s", c.Buffer.Capacity)
	}
	c.Buffer.CapacityRaw = capacity

	switch c.Sink.Type {
	case "":
		c.Sink.Type = "stdout"
	case "stdout":
	case "file", "gzip", "zstd":
		if c.Sink.Path == "" {
			return fmt.Errorf("sink.path is required for sink.type %q", c.Sink.Type)
		}
	case "s3":
		if c.Sink.S3.Bucket == "" {
			return fmt.Errorf("sink.s3.bucket is required for sink.type \"s3\"")
		}
		if c.Sink.S3.Region == "" {
			return fmt.Errorf("sink.s3.region is required for sink.type \"s3\"")
		}
	default:
		return fmt.Errorf("sink.type must be one of stdout, file, gzip, zstd, s3, got %q", c.Sink.Type)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Stats.Schedule == "" {
		c.Stats.Schedule = "@every 1m"
	}

	if c.Ingest.BytesPerSec != "" {
		raw, err := ParseByteSize(c.Ingest.BytesPerSec)
		if err != nil {
			return fmt.Errorf("ingest.bytes_per_sec: %w", err)
		}
		c.Ingest.BytesPerSecRaw = raw
	}

	return nil
}

// ParseByteSize converts human-readable sizes like "256mb", "1gb"
// into bytes. Kept from the teacher's config package verbatim — the
// concern (parsing a size string from YAML) doesn't change.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type suffix struct {
		s string
		m int64
	}
	// Ordered longest-suffix-first so "mb" doesn't match as "b".
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
