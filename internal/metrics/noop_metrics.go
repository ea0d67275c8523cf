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
	"time"
)

// NewNoopMetrics returns a MetricHandle that discards every observation; it
// backs tests and any translator instance started without metrics wiring.
func NewNoopMetrics() MetricHandle {
	var n noopMetrics
	return &n
}

type noopMetrics struct{}

func (*noopMetrics) OpsCount(context.Context, int64, []MetricAttr)                 {}
func (*noopMetrics) OpsLatency(context.Context, time.Duration, []MetricAttr)       {}
func (*noopMetrics) OpsErrorCount(context.Context, int64, []MetricAttr)            {}
func (*noopMetrics) HealTriggerCount(context.Context, int64, []MetricAttr)         {}
func (*noopMetrics) HealSuccessCount(context.Context, int64, []MetricAttr)         {}
func (*noopMetrics) HealFailureCount(context.Context, int64, []MetricAttr)         {}
func (*noopMetrics) GeometryCacheHitCount(context.Context, int64)                  {}
func (*noopMetrics) GeometryCacheMissCount(context.Context, int64)                 {}
func (*noopMetrics) GeometryDiscoveryLatency(context.Context, time.Duration, []MetricAttr) {}
