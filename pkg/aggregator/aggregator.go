// Package aggregator summarises the result files of a sweep into
// per-metric confidence intervals.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lorenzo-12/quantas-link-delay/pkg/stats"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// Options tune Aggregate. The zero value uses a 95% level and one decoder
// per CPU.
type Options struct {
	Confidence float64
	Workers    int
	// Expected, when set, lists identities that must have a result file;
	// missing ones become gaps.
	Expected []sweeptypes.Identity
}

// Aggregate reads every root/<alg>/<comb>/n<N>_f<F>_p<P>.json file and
// builds the summary of alg. Per-file and per-metric failures become gaps;
// only an unreadable tree or a cancelled ctx return an error.
func Aggregate(ctx context.Context, root string, alg sweeptypes.Algorithm, opts Options) (*sweeptypes.Summary, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %q", sweeptypes.ErrUnknownAlgorithm, alg)
	}
	conf := opts.Confidence
	if conf == 0 {
		conf = stats.DefaultConfidence
	}
	if conf <= 0 || conf >= 1 {
		return nil, fmt.Errorf("%w: %v", stats.ErrInvalidConfidence, conf)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths, err := resultFiles(root, alg)
	if err != nil {
		return nil, err
	}

	type decoded struct {
		id    sweeptypes.Identity
		entry sweeptypes.SummaryEntry
		gaps  []sweeptypes.Gap
		ok    bool
	}
	files := make([]decoded, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := sweeptypes.ParseResultPath(root, path)
			if err != nil {
				log.Printf("[aggregator] skipping %s: %v", path, err)
				return nil
			}
			entry, gaps := summarizeFile(path, id, conf)
			files[i] = decoded{id: id, entry: entry, gaps: gaps, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Filed in path order so a conflict always keeps the same entry.
	summary := sweeptypes.NewSummary(alg, conf)
	seen := make(map[string]bool, len(paths))
	for _, f := range files {
		if !f.ok {
			continue
		}
		seen[f.id.Key()] = true
		if len(f.entry.Metrics) > 0 || f.entry.DisagreementFrequency != nil {
			summary.Add(f.entry)
		}
		for _, gap := range f.gaps {
			summary.AddGap(gap)
		}
	}

	for _, id := range opts.Expected {
		if id.Algorithm != alg || seen[id.Key()] {
			continue
		}
		summary.AddGap(sweeptypes.Gap{Identity: id, Reason: "result file missing"})
	}
	summary.SortGaps()
	return summary, nil
}

// resultFiles lists root/<alg>/*/*.json in sorted order.
func resultFiles(root string, alg sweeptypes.Algorithm) ([]string, error) {
	base := filepath.Join(root, string(alg))
	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == base && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", base, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func summarizeFile(path string, id sweeptypes.Identity, conf float64) (sweeptypes.SummaryEntry, []sweeptypes.Gap) {
	f, err := os.Open(path)
	if err != nil {
		return sweeptypes.SummaryEntry{Identity: id}, []sweeptypes.Gap{{Identity: id, Reason: err.Error()}}
	}
	defer f.Close()

	rec, err := sweeptypes.DecodeResult(f)
	if err != nil {
		return sweeptypes.SummaryEntry{Identity: id}, []sweeptypes.Gap{{Identity: id, Reason: err.Error()}}
	}
	return Summarize(id, rec, conf)
}

// Summarize computes the intervals of one decoded result. termination_rate
// is reported in percent; disagreement_frequency is the share of trials
// with any disagreement.
func Summarize(id sweeptypes.Identity, rec sweeptypes.ResultRecord, conf float64) (sweeptypes.SummaryEntry, []sweeptypes.Gap) {
	entry := sweeptypes.SummaryEntry{Identity: id, Metrics: make(map[string]sweeptypes.Interval)}
	var gaps []sweeptypes.Gap

	for _, metric := range sweeptypes.TrialMetrics {
		if series, ok := rec.Series[metric]; ok {
			if len(series) > entry.Trials {
				entry.Trials = len(series)
			}
			iv, err := stats.Confidence(series, conf)
			if err != nil {
				gaps = append(gaps, sweeptypes.Gap{Identity: id, Metric: metric, Reason: err.Error()})
				continue
			}
			if metric == sweeptypes.MetricTerminationRate {
				iv = stats.Scale(iv, 100)
			}
			entry.Metrics[metric] = iv
			continue
		}
		if v, ok := rec.Scalars[metric]; ok {
			// already a percentage in older result files
			entry.Metrics[metric] = sweeptypes.Point(v)
			continue
		}
		gaps = append(gaps, sweeptypes.Gap{Identity: id, Metric: metric, Reason: "metric missing"})
	}

	if series, ok := rec.Series[sweeptypes.MetricDisagreement]; ok && len(series) > 0 {
		freq := stats.NonZeroPercent(series)
		entry.DisagreementFrequency = &freq
	} else {
		gaps = append(gaps, sweeptypes.Gap{Identity: id, Metric: sweeptypes.MetricDisagreementFrequency, Reason: "no disagreement series"})
	}
	return entry, gaps
}
