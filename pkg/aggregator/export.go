package aggregator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// Row is one flattened summary cell.
type Row struct {
	Algorithm   sweeptypes.Algorithm `json:"algorithm"`
	Combination string               `json:"combination"`
	F           int                  `json:"f"`
	P           int                  `json:"p"`
	Metric      string               `json:"metric"`
	sweeptypes.Interval
}

// Flatten lists every cell of s sorted by combination, f, p (descending,
// the order the sweep is plotted in) and metric.
func Flatten(s *sweeptypes.Summary) []Row {
	var rows []Row
	for _, comb := range s.Combinations() {
		for f, byP := range s.Results[comb] {
			for p, metrics := range byP {
				for metric, iv := range metrics {
					rows = append(rows, Row{Algorithm: s.Algorithm, Combination: comb, F: f, P: p, Metric: metric, Interval: iv})
				}
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Combination != b.Combination:
			return a.Combination < b.Combination
		case a.F != b.F:
			return a.F < b.F
		case a.P != b.P:
			return a.P > b.P
		default:
			return a.Metric < b.Metric
		}
	})
	return rows
}

// Selection picks one combination of one algorithm for a comparison.
type Selection struct {
	Algorithm   sweeptypes.Algorithm
	Combination string
}

// Compare extracts metric for each selection from the matching summary,
// which is the data behind the cross-algorithm plots.
func Compare(summaries map[sweeptypes.Algorithm]*sweeptypes.Summary, sel []Selection, metric string) ([]Row, error) {
	var rows []Row
	for _, s := range sel {
		summary, ok := summaries[s.Algorithm]
		if !ok {
			return nil, fmt.Errorf("no summary for %s", s.Algorithm)
		}
		if _, ok := summary.Results[s.Combination]; !ok {
			return nil, fmt.Errorf("%s has no combination %s", s.Algorithm, s.Combination)
		}
		for _, r := range Flatten(summary) {
			if r.Combination == s.Combination && r.Metric == metric {
				rows = append(rows, r)
			}
		}
	}
	return rows, nil
}

// WriteJSON stores s at path, creating parent directories.
func WriteJSON(path string, s *sweeptypes.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a summary written by WriteJSON.
func ReadJSON(path string) (*sweeptypes.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s sweeptypes.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &s, nil
}
