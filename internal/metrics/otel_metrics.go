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

package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	fanoutMeter   = otel.Meter("fanout")
	healMeter     = otel.Meter("heal")
	geometryMeter = otel.Meter("geometry")

	attributeSetCache sync.Map
)

func attrSet(attrs []MetricAttr) metric.MeasurementOption {
	key := ""
	for _, a := range attrs {
		key += a.Key + "=" + a.Value + ";"
	}
	if v, ok := attributeSetCache.Load(key); ok {
		return v.(metric.MeasurementOption)
	}
	kvs := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		kvs[i] = attribute.String(a.Key, a.Value)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(kvs...))
	v, _ := attributeSetCache.LoadOrStore(key, opt)
	return v.(metric.MeasurementOption)
}

// otelMetrics is the production MetricHandle, backed by otel instruments.
type otelMetrics struct {
	opsCount      metric.Int64Counter
	opsErrorCount metric.Int64Counter
	opsLatency    metric.Float64Histogram

	healTriggerCount metric.Int64Counter
	healSuccessCount metric.Int64Counter
	healFailureCount metric.Int64Counter

	geometryCacheHitCount  metric.Int64Counter
	geometryCacheMissCount metric.Int64Counter
	geometryDiscoveryLat   metric.Float64Histogram
}

func (o *otelMetrics) OpsCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.opsCount.Add(ctx, inc, attrSet(attrs))
}

func (o *otelMetrics) OpsLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr) {
	o.opsLatency.Record(ctx, float64(latency.Microseconds()), attrSet(attrs))
}

func (o *otelMetrics) OpsErrorCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.opsErrorCount.Add(ctx, inc, attrSet(attrs))
}

func (o *otelMetrics) HealTriggerCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.healTriggerCount.Add(ctx, inc, attrSet(attrs))
}

func (o *otelMetrics) HealSuccessCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.healSuccessCount.Add(ctx, inc, attrSet(attrs))
}

func (o *otelMetrics) HealFailureCount(ctx context.Context, inc int64, attrs []MetricAttr) {
	o.healFailureCount.Add(ctx, inc, attrSet(attrs))
}

func (o *otelMetrics) GeometryCacheHitCount(ctx context.Context, inc int64) {
	o.geometryCacheHitCount.Add(ctx, inc)
}

func (o *otelMetrics) GeometryCacheMissCount(ctx context.Context, inc int64) {
	o.geometryCacheMissCount.Add(ctx, inc)
}

func (o *otelMetrics) GeometryDiscoveryLatency(ctx context.Context, latency time.Duration, attrs []MetricAttr) {
	o.geometryDiscoveryLat.Record(ctx, float64(latency.Microseconds()), attrSet(attrs))
}

// NewOTelMetrics constructs the production MetricHandle, registering every
// instrument against the global otel MeterProvider.
func NewOTelMetrics() (MetricHandle, error) {
	opsCount, err1 := fanoutMeter.Int64Counter("fanout/ops_count",
		metric.WithDescription("The cumulative number of fops fanned out to subvolumes."))
	opsLatency, err2 := fanoutMeter.Float64Histogram("fanout/ops_latency",
		metric.WithDescription("The distribution of fanout fop latencies."),
		metric.WithUnit("us"), defaultLatencyDistribution)
	opsErrorCount, err3 := fanoutMeter.Int64Counter("fanout/ops_error_count",
		metric.WithDescription("The cumulative number of fanout fops that failed."))

	healTriggerCount, err4 := healMeter.Int64Counter("heal/trigger_count",
		metric.WithDescription("The cumulative number of self-heal jobs scheduled."))
	healSuccessCount, err5 := healMeter.Int64Counter("heal/success_count",
		metric.WithDescription("The cumulative number of self-heal jobs that completed successfully."))
	healFailureCount, err6 := healMeter.Int64Counter("heal/failure_count",
		metric.WithDescription("The cumulative number of self-heal jobs that failed."))

	geometryCacheHitCount, err7 := geometryMeter.Int64Counter("geometry/cache_hit_count",
		metric.WithDescription("The cumulative number of inode context cache hits."))
	geometryCacheMissCount, err8 := geometryMeter.Int64Counter("geometry/cache_miss_count",
		metric.WithDescription("The cumulative number of inode context cache misses requiring discovery."))
	geometryDiscoveryLat, err9 := geometryMeter.Float64Histogram("geometry/discovery_latency",
		metric.WithDescription("The distribution of geometry discovery fanout latencies."),
		metric.WithUnit("us"), defaultLatencyDistribution)

	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7, err8, err9); err != nil {
		return nil, err
	}

	return &otelMetrics{
		opsCount:               opsCount,
		opsLatency:             opsLatency,
		opsErrorCount:          opsErrorCount,
		healTriggerCount:       healTriggerCount,
		healSuccessCount:       healSuccessCount,
		healFailureCount:       healFailureCount,
		geometryCacheHitCount:  geometryCacheHitCount,
		geometryCacheMissCount: geometryCacheMissCount,
		geometryDiscoveryLat:   geometryDiscoveryLat,
	}, nil
}
