package metrics

import (
	"testing"
	"time"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

func TestCompute(t *testing.T) {
	mc := NewBatchCollector()
	for i := 1; i <= 6; i++ {
		mc.TrackStart()
		state := sweeptypes.Succeeded
		if i == 6 {
			state = sweeptypes.Failed
		}
		mc.TrackOutcome(state, time.Duration(i)*time.Second)
	}
	mc.TrackOutcome(sweeptypes.Cancelled, 0)
	mc.RecordKill()

	m := mc.Compute()
	want := map[string]float64{
		"jobs_started":     6,
		"jobs_succeeded":   5,
		"jobs_failed":      1,
		"jobs_cancelled":   1,
		"jobs_killed":      1,
		"job_seconds_mean": 3.5,
		"job_seconds_max":  6,
		"job_seconds_p95":  6,
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
	if m["jobs_per_hour"] <= 0 {
		t.Errorf("jobs_per_hour = %v", m["jobs_per_hour"])
	}
}

func TestComputeEmpty(t *testing.T) {
	m := NewBatchCollector().Compute()
	if _, ok := m["job_seconds_mean"]; ok {
		t.Error("mean reported without any duration")
	}
	if m["jobs_started"] != 0 {
		t.Errorf("jobs_started = %v", m["jobs_started"])
	}
}
