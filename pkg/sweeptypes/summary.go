package sweeptypes

import (
	"fmt"
	"sort"
)

// Interval is a mean with its two-sided confidence bounds.
type Interval struct {
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Point is a degenerate interval used for values that are already frequencies.
func Point(v float64) Interval {
	return Interval{Mean: v, Lower: v, Upper: v}
}

// SummaryEntry holds the statistics of one result file.
type SummaryEntry struct {
	Identity              Identity            `json:"identity"`
	Trials                int                 `json:"trials"`
	Metrics               map[string]Interval `json:"metrics"`
	DisagreementFrequency *float64            `json:"disagreement_frequency,omitempty"`
}

// Gap records a result that could not be summarised.
type Gap struct {
	Identity Identity `json:"identity"`
	Metric   string   `json:"metric,omitempty"`
	Reason   string   `json:"reason"`
}

// Summary is the aggregator output for one algorithm:
// combination -> f -> p -> metric -> interval.
type Summary struct {
	Algorithm  Algorithm                                      `json:"algorithm"`
	Confidence float64                                        `json:"confidence"`
	Results    map[string]map[int]map[int]map[string]Interval `json:"results"`
	Gaps       []Gap                                          `json:"gaps,omitempty"`

	// nodes is the n filed under each combination/f/p slot.
	nodes map[string]int
}

func NewSummary(alg Algorithm, confidence float64) *Summary {
	return &Summary{
		Algorithm:  alg,
		Confidence: confidence,
		Results:    make(map[string]map[int]map[int]map[string]Interval),
	}
}

// Add files an entry's metrics under its identity. The lookup has no n
// level, so an entry whose slot already holds a different n is kept out of
// Results and recorded as a gap.
func (s *Summary) Add(e SummaryEntry) {
	comb := e.Identity.Combination.String()
	slot := fmt.Sprintf("%s/%d/%d", comb, e.Identity.F, e.Identity.P)
	if s.nodes == nil {
		s.nodes = make(map[string]int)
	}
	if n, ok := s.nodes[slot]; ok && n != e.Identity.N {
		s.AddGap(Gap{
			Identity: e.Identity,
			Reason:   fmt.Sprintf("node count %d conflicts with n=%d already summarised for %s f=%d p=%d", e.Identity.N, n, comb, e.Identity.F, e.Identity.P),
		})
		return
	}
	s.nodes[slot] = e.Identity.N

	byF, ok := s.Results[comb]
	if !ok {
		byF = make(map[int]map[int]map[string]Interval)
		s.Results[comb] = byF
	}
	byP, ok := byF[e.Identity.F]
	if !ok {
		byP = make(map[int]map[string]Interval)
		byF[e.Identity.F] = byP
	}
	metrics := make(map[string]Interval, len(e.Metrics)+1)
	for k, v := range e.Metrics {
		metrics[k] = v
	}
	if e.DisagreementFrequency != nil {
		metrics[MetricDisagreementFrequency] = Point(*e.DisagreementFrequency)
	}
	byP[e.Identity.P] = metrics
}

func (s *Summary) AddGap(g Gap) {
	s.Gaps = append(s.Gaps, g)
}

// Lookup returns the interval of one metric, false when it is a gap.
func (s *Summary) Lookup(comb string, f, p int, metric string) (Interval, bool) {
	iv, ok := s.Results[comb][f][p][metric]
	return iv, ok
}

// Combinations lists the combinations present, sorted.
func (s *Summary) Combinations() []string {
	out := make([]string, 0, len(s.Results))
	for c := range s.Results {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SortGaps orders gaps by identity key then metric so output is stable.
func (s *Summary) SortGaps() {
	sort.Slice(s.Gaps, func(i, j int) bool {
		ki, kj := s.Gaps[i].Identity.Key(), s.Gaps[j].Identity.Key()
		if ki != kj {
			return ki < kj
		}
		return s.Gaps[i].Metric < s.Gaps[j].Metric
	})
}
