package metrics

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// BatchCollector records job outcomes of one scheduler batch.
type BatchCollector struct {
	mu        sync.Mutex
	durations []float64
	outcomes  map[sweeptypes.JobState]int
	started   int
	killed    int
	startTime time.Time
}

func NewBatchCollector() *BatchCollector {
	return &BatchCollector{
		outcomes:  make(map[sweeptypes.JobState]int),
		startTime: time.Now(),
	}
}

func (mc *BatchCollector) TrackStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.started++
}

// TrackOutcome records a terminal state and how long the child ran.
func (mc *BatchCollector) TrackOutcome(state sweeptypes.JobState, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.outcomes[state]++
	if d > 0 {
		mc.durations = append(mc.durations, d.Seconds())
	}
}

// RecordKill counts a child that ignored SIGTERM past the grace period.
func (mc *BatchCollector) RecordKill() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.killed++
}

func (mc *BatchCollector) Compute() map[string]float64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	metrics := map[string]float64{
		"jobs_started":   float64(mc.started),
		"jobs_succeeded": float64(mc.outcomes[sweeptypes.Succeeded]),
		"jobs_failed":    float64(mc.outcomes[sweeptypes.Failed]),
		"jobs_cancelled": float64(mc.outcomes[sweeptypes.Cancelled]),
		"jobs_killed":    float64(mc.killed),
	}

	if len(mc.durations) > 0 {
		mean, _ := stats.Mean(mc.durations)
		max, _ := stats.Max(mc.durations)
		metrics["job_seconds_mean"] = mean
		metrics["job_seconds_max"] = max
	}

	if elapsed := time.Since(mc.startTime).Hours(); elapsed > 0 {
		done := mc.outcomes[sweeptypes.Succeeded] + mc.outcomes[sweeptypes.Failed]
		metrics["jobs_per_hour"] = float64(done) / elapsed
	}

	if len(mc.durations) >= 5 {
		if p95, err := stats.PercentileNearestRank(mc.durations, 95); err == nil {
			metrics["job_seconds_p95"] = p95
		}
	}

	return metrics
}
