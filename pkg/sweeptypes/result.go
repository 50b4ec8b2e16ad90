package sweeptypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Metric names as written by the simulator.
const (
	MetricDeliveryNodes         = "delivery_nodes"
	MetricDeliveryTime          = "delivery_time"
	MetricTerminationRate       = "termination_rate"
	MetricDisagreement          = "disagreement"
	MetricDisagreementFrequency = "disagreement_frequency"
	MetricFinishingSteps        = "finishing_steps"
	MetricTotalMsgsSent         = "total_msgs_sent"
)

// TrialMetrics are the per-trial sequences summarised with a confidence interval.
var TrialMetrics = []string{
	MetricDeliveryNodes,
	MetricDeliveryTime,
	MetricTerminationRate,
	MetricDisagreement,
	MetricFinishingSteps,
	MetricTotalMsgsSent,
}

// ErrEmptyResult marks a pre-created result slot the simulator never filled.
var ErrEmptyResult = errors.New("empty result file")

// ResultRecord is the decoded "Results" object of one result file.
type ResultRecord struct {
	Series  map[string][]float64
	Scalars map[string]float64
	RunTime float64
}

type resultFile struct {
	Results map[string]json.RawMessage `json:"Results"`
	RunTime float64                    `json:"RunTime"`
}

// DecodeResult reads a result file. Textual percentages such as
// "85.000000% (85/100)" become scalars in percent units.
func DecodeResult(r io.Reader) (ResultRecord, error) {
	var raw resultFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return ResultRecord{}, fmt.Errorf("decode result: %w", err)
	}
	if len(raw.Results) == 0 {
		return ResultRecord{}, ErrEmptyResult
	}

	rec := ResultRecord{
		Series:  make(map[string][]float64),
		Scalars: make(map[string]float64),
		RunTime: raw.RunTime,
	}
	for name, value := range raw.Results {
		var series []float64
		if err := json.Unmarshal(value, &series); err == nil {
			rec.Series[name] = series
			continue
		}
		var scalar float64
		if err := json.Unmarshal(value, &scalar); err == nil {
			rec.Scalars[name] = scalar
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil {
			pct, err := ParsePercent(text)
			if err != nil {
				return ResultRecord{}, fmt.Errorf("decode result %s: %w", name, err)
			}
			rec.Scalars[name] = pct
			continue
		}
		// nested objects (n, f, c, p headers in some builds) are not metrics
	}
	return rec, nil
}

// ParsePercent reads the leading number of "<float>%..." text.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "%")
	if idx < 0 {
		return 0, fmt.Errorf("percentage %q: missing %%", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("percentage %q: %v", s, err)
	}
	return v, nil
}
