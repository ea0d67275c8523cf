// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics is the otel-backed instrumentation surface for the
// fanout engine, the self-heal worker, and the geometry cache.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

type ShutdownFn func(ctx context.Context) error

// JoinShutdownFunc combines the provided shutdown functions into a single
// function that runs all of them and joins their errors.
func JoinShutdownFunc(shutdownFns ...ShutdownFn) ShutdownFn {
	return func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFns {
			if fn == nil {
				continue
			}
			err = errors.Join(err, fn(ctx))
		}
		return err
	}
}

var defaultLatencyDistribution = metric.WithExplicitBucketBoundaries(
	1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100,
	130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 5000, 10000,
)

// MetricAttr represents one attribute attached to a metric observation.
type MetricAttr struct {
	Key, Value string
}

func (a *MetricAttr) String() string {
	return fmt.Sprintf("Key: %s, Value: %s", a.Key, a.Value)
}

const (
	FopKey        = "fop"
	ErrorCategory = "error_category"
	LayoutKey     = "layout"
	HealReasonKey = "heal_reason"
)

// FanoutMetricHandle instruments the request fanout engine (C4): per-fop
// call counts, latencies, and error counts.
type FanoutMetricHandle interface {
	OpsCount(ctx context.Context, inc int64, attrs []MetricAttr)
	OpsLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr)
	OpsErrorCount(ctx context.Context, inc int64, attrs []MetricAttr)
}

// HealMetricHandle instruments the self-heal worker (C5).
type HealMetricHandle interface {
	HealTriggerCount(ctx context.Context, inc int64, attrs []MetricAttr)
	HealSuccessCount(ctx context.Context, inc int64, attrs []MetricAttr)
	HealFailureCount(ctx context.Context, inc int64, attrs []MetricAttr)
}

// GeometryMetricHandle instruments the inode/fd context cache (C3) and the
// geometry discovery protocol (C1).
type GeometryMetricHandle interface {
	GeometryCacheHitCount(ctx context.Context, inc int64)
	GeometryCacheMissCount(ctx context.Context, inc int64)
	GeometryDiscoveryLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr)
}

// MetricHandle is the full instrumentation surface wired into the
// translator at startup.
type MetricHandle interface {
	FanoutMetricHandle
	HealMetricHandle
	GeometryMetricHandle
}
