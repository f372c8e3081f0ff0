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
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig controls span export.
type TracingConfig struct {
	// ServiceName identifies this tool in exported spans.
	// Default: "stampsweep"
	ServiceName string

	// ServiceVersion is the version string recorded on the resource.
	ServiceVersion string

	// File receives spans as JSON. "" disables tracing.
	File string

	// Writer receives spans instead of File when set. Used by tests.
	Writer io.Writer
}

// InitTracing installs a global TracerProvider exporting to cfg.File.
//
// # Outputs
//
//   - shutdown: Flushes and closes the exporter; always non-nil
//   - error: Non-nil if the file or exporter could not be created
//
// # Limitations
//
//   - Spans are batched; they reach the file only on shutdown or when a
//     batch fills
func InitTracing(ctx context.Context, cfg TracingConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.File == "" && cfg.Writer == nil {
		return noop, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "stampsweep"
	}

	w := cfg.Writer
	var file *os.File
	if w == nil {
		file, err = os.Create(cfg.File)
		if err != nil {
			return noop, fmt.Errorf("failed to create trace file %s: %w", cfg.File, err)
		}
		w = file
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		if file != nil {
			file.Close()
		}
		return noop, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		errs := []error{tp.Shutdown(ctx)}
		if file != nil {
			errs = append(errs, file.Close())
		}
		return errors.Join(errs...)
	}, nil
}
