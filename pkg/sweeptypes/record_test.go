package sweeptypes

import (
	"errors"
	"strings"
	"testing"
)

// newTestRecord builds a valid n=10 f=3 p=50 record: nodes 0-2 faulty,
// 3-5 in group 0, 6-9 in group 1.
func newTestRecord() ConfigurationRecord {
	mask := make([]bool, 10)
	mask[0], mask[1], mask[2] = true, true, true
	return ConfigurationRecord{
		Identity:   Identity{Algorithm: Bracha, Combination: Combination{Silent, Same}, N: 10, F: 3, P: 50},
		FaultyMask: mask,
		Sender:     1,
		Groups:     [2][]int{{3, 4, 5}, {6, 7, 8, 9}},
		Trials:     100,
		Rounds:     1000,
	}
}

func TestRecordValidate(t *testing.T) {
	if err := newTestRecord().Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := map[string]func(r *ConfigurationRecord){
		"honest sender":    func(r *ConfigurationRecord) { r.Sender = 4 },
		"short mask":       func(r *ConfigurationRecord) { r.FaultyMask = r.FaultyMask[:9] },
		"too many faulty":  func(r *ConfigurationRecord) { r.FaultyMask = append([]bool{}, r.FaultyMask...); r.FaultyMask[9] = true },
		"overlap":          func(r *ConfigurationRecord) { r.Groups = [2][]int{{3, 4, 5}, {5, 6, 7, 8, 9}} },
		"missing node":     func(r *ConfigurationRecord) { r.Groups = [2][]int{{3, 4, 5}, {6, 7, 8}} },
		"faulty in group":  func(r *ConfigurationRecord) { r.Groups = [2][]int{{0, 4, 5}, {3, 6, 7, 8, 9}} },
		"wrong group size": func(r *ConfigurationRecord) { r.Groups = [2][]int{{3, 4}, {5, 6, 7, 8, 9}} },
		"no trials":        func(r *ConfigurationRecord) { r.Trials = 0 },
		"f equals n":       func(r *ConfigurationRecord) { r.F = 10 },
	}
	for name, mutate := range cases {
		r := newTestRecord()
		mutate(&r)
		if err := r.Validate(); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("%s: err = %v, want ErrInvalidRecord", name, err)
		}
	}
}

func TestGroupSize(t *testing.T) {
	cases := []struct{ n, f, p, want int }{
		{100, 25, 80, 60},
		{100, 33, 50, 33},
		{100, 19, 100, 81},
		{100, 40, 0, 0},
	}
	for _, c := range cases {
		if got := GroupSize(c.n, c.f, c.p); got != c.want {
			t.Errorf("GroupSize(%d,%d,%d) = %d, want %d", c.n, c.f, c.p, got, c.want)
		}
	}
}

func TestDecodeResult(t *testing.T) {
	rec, err := DecodeResult(strings.NewReader(`{
		"Results": {
			"delivery_time": [10, 12, 14],
			"termination_rate": "85.000000% (85/100)",
			"disagreement_frequency": 0.25,
			"header": {"n": 100}
		},
		"RunTime": 3.5
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Series[MetricDeliveryTime]) != 3 {
		t.Errorf("series = %v", rec.Series)
	}
	if rec.Scalars[MetricTerminationRate] != 85 || rec.Scalars[MetricDisagreementFrequency] != 0.25 {
		t.Errorf("scalars = %v", rec.Scalars)
	}
	if rec.RunTime != 3.5 {
		t.Errorf("run time = %v", rec.RunTime)
	}

	if _, err := DecodeResult(strings.NewReader(`{}`)); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("empty slot: %v", err)
	}
	if _, err := DecodeResult(strings.NewReader(`{"Results": {"termination_rate": "eighty"}}`)); err == nil {
		t.Error("bad percentage accepted")
	}
	if _, err := DecodeResult(strings.NewReader(`{"Results": {"delivery_time": [1, 2`)); err == nil {
		t.Error("truncated file accepted")
	}
}
