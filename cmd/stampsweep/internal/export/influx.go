// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// Measurement is the InfluxDB measurement every sample is written to.
const Measurement = "stamp_run"

// ErrInfluxUnavailable is returned when the InfluxDB health check fails.
var ErrInfluxUnavailable = errors.New("influxdb unavailable")

// PointWriter is the subset of api.WriteAPIBlocking the sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// SinkConfig labels every point a sink writes.
type SinkConfig struct {
	// SweepID tags points so one sweep can be queried in isolation.
	SweepID string

	// Workload is "full" or "sim".
	Workload string

	// BatchSize is the number of points buffered before a write.
	// Default: 50
	BatchSize int

	Logger *logging.Logger
}

// InfluxSink is a runner.Observer that writes recorded samples to InfluxDB.
//
// # Description
//
// Each ObserveOutcome adds a stamp_run point tagged with variant, benchmark,
// threads, workload and sweep_id. Points are buffered and written in
// batches; call Flush after the sweep to write the remainder. Write failures
// are logged and counted, never returned to the sweep.
//
// # Thread Safety
//
// Safe for concurrent use.
type InfluxSink struct {
	writer PointWriter
	config SinkConfig

	mu      sync.Mutex
	pending []*write.Point
	written int
	failed  int
}

// NewInfluxSink creates a sink on an existing writer.
func NewInfluxSink(w PointWriter, cfg SinkConfig) *InfluxSink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &InfluxSink{writer: w, config: cfg}
}

// DialInflux connects to InfluxDB and returns a sink writing to cfg.Bucket.
//
// # Outputs
//
//   - *InfluxSink: Sink on a blocking write API
//   - func(): Closes the underlying client
//   - error: ErrInfluxUnavailable if the health check fails
func DialInflux(ctx context.Context, cfg InfluxConfig, sink SinkConfig) (*InfluxSink, func(), error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrInfluxUnavailable, cfg.URL, err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, nil, fmt.Errorf("%w: %s reports status %q", ErrInfluxUnavailable, cfg.URL, health.Status)
	}
	return NewInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), sink), client.Close, nil
}

// ObserveAttempt is a no-op; only recorded samples are exported.
func (s *InfluxSink) ObserveAttempt(ctx context.Context, a runner.Attempt) {}

// ObserveOutcome buffers one point and writes the batch when full.
func (s *InfluxSink) ObserveOutcome(ctx context.Context, o runner.Outcome) {
	p := influxdb2.NewPoint(
		Measurement,
		map[string]string{
			"variant":   string(o.Invocation.Variant),
			"benchmark": string(o.Invocation.Variant.Benchmark()),
			"threads":   strconv.Itoa(o.Invocation.Threads),
			"workload":  s.config.Workload,
			"sweep_id":  s.config.SweepID,
		},
		map[string]interface{}{
			"elapsed":   o.Sample,
			"attempts":  o.Attempts,
			"exhausted": errors.Is(o.Err, runner.ErrRetriesExhausted),
		},
		time.Now(),
	)

	s.mu.Lock()
	s.pending = append(s.pending, p)
	full := len(s.pending) >= s.config.BatchSize
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes every buffered point.
//
// # Outputs
//
//   - error: The write error, also logged; the batch is dropped either way
func (s *InfluxSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, batch...); err != nil {
		s.mu.Lock()
		s.failed += len(batch)
		s.mu.Unlock()
		s.config.Logger.Warn("failed to write points to influxdb", "points", len(batch), "error", err)
		return fmt.Errorf("write %d points: %w", len(batch), err)
	}
	s.mu.Lock()
	s.written += len(batch)
	s.mu.Unlock()
	return nil
}

// Counts returns how many points were written and how many were dropped.
func (s *InfluxSink) Counts() (written, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written, s.failed
}

var _ runner.Observer = (*InfluxSink)(nil)
