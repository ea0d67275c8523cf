package heal

import (
	"context"
	"time"

	"github.com/stripefs/stripefs/internal/clock"
	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/logger"
	"github.com/stripefs/stripefs/internal/metrics"
)

// Worker periodically drains a Queue, recreating missing stub files on
// lagging subvolumes (mirrors the teacher's periodic-ticker garbage
// collection loop in fs/garbage_collect.go, re-purposed from stale-object
// deletion to stub recreation).
type Worker struct {
	Queue   *Queue
	Keys    geometry.Keys
	Clock   clock.Clock
	Period  time.Duration
	Metrics metrics.HealMetricHandle
}

// Run sweeps the queue every Period until ctx is cancelled. Failures are
// logged and never propagated (spec §4.5, §7: "Self-heal failures never
// reach the caller").
func (w *Worker) Run(ctx context.Context) {
	if w.Period <= 0 {
		w.Period = 30 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Clock.After(w.Period):
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	healed, failed := 0, 0
	for {
		job, ok := w.Queue.Pop()
		if !ok {
			break
		}
		if err := HealOne(ctx, w.Keys, job); err != nil {
			failed++
			w.Metrics.HealFailureCount(ctx, 1, nil)
			logger.Warnf("self-heal failed for %q: %v", job.Path, err)
			continue
		}
		healed++
		w.Metrics.HealSuccessCount(ctx, 1, nil)
	}
	if healed > 0 || failed > 0 {
		logger.Infof("self-heal sweep: healed=%d failed=%d", healed, failed)
	}
}
