// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("aleutian.codegraph")
	meter  = otel.Meter("aleutian.codegraph")
)

var (
	buildLatency  metric.Float64Histogram
	buildTotal    metric.Int64Counter
	edgesByType   metric.Int64Counter
	skippedTotal  metric.Int64Counter
	communityHist metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"codegraph_build_duration_seconds",
			metric.WithDescription("Duration of module graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"codegraph_build_total",
			metric.WithDescription("Total number of module graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesByType, err = meter.Int64Counter(
			"codegraph_edges_total",
			metric.WithDescription("Edges created, by relation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		skippedTotal, err = meter.Int64Counter(
			"codegraph_entities_skipped_total",
			metric.WithDescription("Input entities skipped as malformed or excluded"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		communityHist, err = meter.Int64Histogram(
			"codegraph_communities",
			metric.WithDescription("Number of communities per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a finished build.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats, communities int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	if !success {
		return
	}

	for rel, n := range stats.EdgesByRelation {
		edgesByType.Add(ctx, int64(n), metric.WithAttributes(attribute.String("relation", rel.String())))
	}
	if stats.EntitiesSkipped > 0 {
		skippedTotal.Add(ctx, int64(stats.EntitiesSkipped))
	}
	communityHist.Record(ctx, int64(communities))
}

func startBuildSpan(ctx context.Context, workspace string, entityCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(
			attribute.String("codegraph.workspace", workspace),
			attribute.Int("codegraph.entity_count", entityCount),
		),
	)
}

func setBuildSpanResult(span trace.Span, nodes, edges, communities int) {
	span.SetAttributes(
		attribute.Int("codegraph.node_count", nodes),
		attribute.Int("codegraph.edge_count", edges),
		attribute.Int("codegraph.community_count", communities),
	)
}
