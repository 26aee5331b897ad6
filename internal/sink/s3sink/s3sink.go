// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package s3sink implements sink.Sink by accumulating drained bytes in
// memory and uploading the accumulated object to S3 on Flush. It is
// grounded on the client/credential-chain wiring the reference corpus
// uses for S3-backed stores, repointed at the drain worker's
// write-all/flush contract rather than a filesystem-shaped store.
package s3sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3 client and target object.
type Config struct {
	Endpoint        string // optional, for S3-compatible services
	Region          string
	Bucket          string
	KeyPrefix       string // object keys are KeyPrefix + a timestamp suffix
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// NewClient builds an s3.Client from static configuration, following
// the same config.LoadDefaultConfig + credentials.NewStaticCredentialsProvider
// shape used throughout the reference corpus's S3-backed stores.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3sink: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return client, nil
}

// Sink buffers drained bytes in memory and uploads them as a single
// object per Flush. Each Flush starts a fresh accumulation buffer
// (rotation), so every Flush call produces its own object. The drain
// worker calls Flush once, at shutdown, so under the worker everything
// it drained becomes a single object.
type Sink struct {
	client *s3.Client
	bucket string
	prefix string

	mu  sync.Mutex
	buf bytes.Buffer

	now func() time.Time
}

// New creates an S3-backed sink for the given bucket/prefix.
func New(client *s3.Client, bucket, keyPrefix string) *Sink {
	return &Sink{
		client: client,
		bucket: bucket,
		prefix: keyPrefix,
		now:    time.Now,
	}
}

// Write appends p to the in-memory accumulation buffer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

// Flush uploads the accumulated bytes as one object and resets the
// buffer. A Flush over an empty buffer is a no-op (no zero-byte
// objects are created).
func (s *Sink) Flush() error {
	s.mu.Lock()
	if s.buf.Len() == 0 {
		s.mu.Unlock()
		return nil
	}
	body := bytes.NewReader(s.buf.Bytes())
	key := s.objectKey()
	s.buf.Reset()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("s3sink: PutObject %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *Sink) objectKey() string {
	return fmt.Sprintf("%s%s.bin", s.prefix, s.now().UTC().Format("20060102T150405.000000000"))
}
