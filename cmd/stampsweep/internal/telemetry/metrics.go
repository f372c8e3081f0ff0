// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
)

const (
	metricsNamespace = "stampsweep"
	metricsSubsystem = "benchmark"
)

// SweepMetrics records per-variant Prometheus metrics for one sweep.
type SweepMetrics struct {
	registry *prometheus.Registry

	attemptsTotal    *prometheus.CounterVec
	zeroResultsTotal *prometheus.CounterVec
	nonZeroExitTotal *prometheus.CounterVec
	exhaustedTotal   *prometheus.CounterVec
	samplesTotal     *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	lastSample       *prometheus.GaugeVec
}

// NewSweepMetrics creates and registers the sweep metrics.
//
// # Inputs
//
//   - workload: Constant "workload" label, "full" or "sim"
//
// # Outputs
//
//   - *SweepMetrics: Ready-to-use recorder with its own registry
func NewSweepMetrics(workload string) *SweepMetrics {
	constLabels := prometheus.Labels{"workload": workload}
	m := &SweepMetrics{
		registry: prometheus.NewRegistry(),

		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "attempts_total",
				Help:        "Benchmark process launches, including zero-result retries",
				ConstLabels: constLabels,
			},
			[]string{"variant"},
		),

		zeroResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "zero_results_total",
				Help:        "Launches whose output summed to zero time",
				ConstLabels: constLabels,
			},
			[]string{"variant"},
		),

		nonZeroExitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "nonzero_exit_total",
				Help:        "Launches that exited with a non-zero status",
				ConstLabels: constLabels,
			},
			[]string{"variant"},
		),

		exhaustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "retries_exhausted_total",
				Help:        "Invocations that recorded zero after the attempt cap",
				ConstLabels: constLabels,
			},
			[]string{"variant"},
		),

		samplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "samples_total",
				Help:        "Samples recorded into the result store",
				ConstLabels: constLabels,
			},
			[]string{"variant"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "run_duration_seconds",
				Help:        "Wall-clock duration of one benchmark process",
				Buckets:     prometheus.ExponentialBuckets(0.01, 4, 10),
				ConstLabels: constLabels,
			},
			[]string{"variant", "threads"},
		),

		lastSample: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Subsystem:   metricsSubsystem,
				Name:        "last_sample",
				Help:        "Most recent recorded sample as reported by the benchmark",
				ConstLabels: constLabels,
			},
			[]string{"variant", "threads"},
		),
	}

	m.registry.MustRegister(
		m.attemptsTotal,
		m.zeroResultsTotal,
		m.nonZeroExitTotal,
		m.exhaustedTotal,
		m.samplesTotal,
		m.runDuration,
		m.lastSample,
	)
	return m
}

// ObserveAttempt records one process launch.
func (m *SweepMetrics) ObserveAttempt(ctx context.Context, a runner.Attempt) {
	variant := string(a.Invocation.Variant)
	m.attemptsTotal.WithLabelValues(variant).Inc()
	if a.Extraction.IsZero() {
		m.zeroResultsTotal.WithLabelValues(variant).Inc()
	}
	if a.Result.ExitCode != 0 {
		m.nonZeroExitTotal.WithLabelValues(variant).Inc()
	}
	m.runDuration.WithLabelValues(variant, strconv.Itoa(a.Invocation.Threads)).Observe(a.Result.Duration.Seconds())
}

// ObserveOutcome records one recorded sample.
func (m *SweepMetrics) ObserveOutcome(ctx context.Context, o runner.Outcome) {
	variant := string(o.Invocation.Variant)
	m.samplesTotal.WithLabelValues(variant).Inc()
	m.lastSample.WithLabelValues(variant, strconv.Itoa(o.Invocation.Threads)).Set(o.Sample)
	if errors.Is(o.Err, runner.ErrRetriesExhausted) {
		m.exhaustedTotal.WithLabelValues(variant).Inc()
	}
}

// Registry returns the registry holding the sweep metrics.
func (m *SweepMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in text exposition format.
func (m *SweepMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

var _ runner.Observer = (*SweepMetrics)(nil)
