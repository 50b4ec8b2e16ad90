package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// Generator expands sweep axes into configuration records and writes them in
// the layout the simulator reads.
type Generator struct {
	Axes Axes
	// ConfigDir receives <PeerClass>/<alg>_<comb>.json.
	ConfigDir string
	// ResultsDir is where result slots are pre-created.
	ResultsDir string
	// LogFileRoot prefixes the logFile field; the simulator resolves it
	// relative to its own working directory.
	LogFileRoot string
	// ResetResults truncates existing result files back to {}.
	ResetResults bool

	rng *rand.Rand
}

type Option func(*Generator)

// WithRand fixes the random source, used by tests for reproducible draws.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

func WithLogFileRoot(root string) Option {
	return func(g *Generator) { g.LogFileRoot = root }
}

func WithResetResults(reset bool) Option {
	return func(g *Generator) { g.ResetResults = reset }
}

func New(axes Axes, configDir, resultsDir string, opts ...Option) (*Generator, error) {
	if err := axes.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		Axes:        axes,
		ConfigDir:   configDir,
		ResultsDir:  resultsDir,
		LogFileRoot: "results_all",
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Record draws one configuration for id: the faulty set is sampled without
// replacement, the sender is uniform over it and the shuffled honest nodes
// are split at GroupSize.
func (g *Generator) Record(id sweeptypes.Identity) (sweeptypes.ConfigurationRecord, error) {
	if err := id.Validate(); err != nil {
		return sweeptypes.ConfigurationRecord{}, fmt.Errorf("%w: %v", sweeptypes.ErrInvalidRecord, err)
	}

	perm := g.rng.Perm(id.N)
	faulty := perm[:id.F]
	mask := make([]bool, id.N)
	for _, i := range faulty {
		mask[i] = true
	}
	sender := faulty[g.rng.Intn(len(faulty))]

	honest := make([]int, 0, id.N-id.F)
	for i, bad := range mask {
		if !bad {
			honest = append(honest, i)
		}
	}
	g.rng.Shuffle(len(honest), func(i, j int) { honest[i], honest[j] = honest[j], honest[i] })
	cut := sweeptypes.GroupSize(id.N, id.F, id.P)

	rec := sweeptypes.ConfigurationRecord{
		Identity:   id,
		FaultyMask: mask,
		Sender:     sender,
		Groups: [2][]int{
			append([]int{}, honest[:cut]...),
			append([]int{}, honest[cut:]...),
		},
		Trials: g.Axes.Trials,
		Rounds: g.Axes.Rounds,
	}
	return rec, rec.Validate()
}

// Combinations returns the combinations swept for alg, all of them when the
// axes do not restrict it.
func (g *Generator) Combinations(alg sweeptypes.Algorithm) []sweeptypes.Combination {
	if combos, ok := g.Axes.Combinations[alg]; ok {
		return combos
	}
	return sweeptypes.AllCombinations(alg)
}

// Identities lists every tuple the sweep covers for alg, in generation order.
func (g *Generator) Identities(alg sweeptypes.Algorithm) []sweeptypes.Identity {
	var ids []sweeptypes.Identity
	for _, comb := range g.Combinations(alg) {
		ids = append(ids, g.identitiesFor(alg, comb)...)
	}
	return ids
}

func (g *Generator) identitiesFor(alg sweeptypes.Algorithm, comb sweeptypes.Combination) []sweeptypes.Identity {
	var ids []sweeptypes.Identity
	for _, n := range g.Axes.N {
		for _, f := range g.Axes.F {
			for _, p := range g.Axes.P {
				ids = append(ids, sweeptypes.Identity{Algorithm: alg, Combination: comb, N: n, F: f, P: p})
			}
		}
	}
	return ids
}

// Records is the full Cartesian product for alg. Entries that cannot be
// drawn are returned as errors and skipped.
func (g *Generator) Records(alg sweeptypes.Algorithm) ([]sweeptypes.ConfigurationRecord, []error) {
	var (
		recs []sweeptypes.ConfigurationRecord
		errs []error
	)
	for _, id := range g.Identities(alg) {
		rec, err := g.Record(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}

// Report summarises one Write call.
type Report struct {
	Algorithm   sweeptypes.Algorithm `json:"algorithm"`
	ConfigFiles []string             `json:"config_files"`
	Records     int                  `json:"records"`
	ResultSlots int                  `json:"result_slots"`
	Errors      []string             `json:"errors,omitempty"`
}

// ConfigFileName is <alg>_<comb>.json.
func ConfigFileName(alg sweeptypes.Algorithm, comb sweeptypes.Combination) string {
	return fmt.Sprintf("%s_%s.json", alg, comb)
}

// ConfigPath is ConfigDir/<PeerClass>/<alg>_<comb>.json.
func (g *Generator) ConfigPath(alg sweeptypes.Algorithm, comb sweeptypes.Combination) string {
	return filepath.Join(g.ConfigDir, alg.PeerClass(), ConfigFileName(alg, comb))
}

// Write generates and persists every configuration file of alg and the
// matching result slots. A bad entry is reported and skipped; I/O failures
// abort.
func (g *Generator) Write(alg sweeptypes.Algorithm) (Report, error) {
	if !alg.Valid() {
		return Report{}, fmt.Errorf("%w: %q", sweeptypes.ErrUnknownAlgorithm, alg)
	}
	report := Report{Algorithm: alg}

	if err := os.MkdirAll(filepath.Join(g.ConfigDir, alg.PeerClass()), 0755); err != nil {
		return report, fmt.Errorf("create config dir: %w", err)
	}

	for _, comb := range g.Combinations(alg) {
		name := ConfigFileName(alg, comb)
		file := experimentFile{Experiments: []experiment{}}

		for _, id := range g.identitiesFor(alg, comb) {
			rec, err := g.Record(id)
			if err != nil {
				log.Printf("skipping %s: %v", id, err)
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			if err := g.createSlot(id); err != nil {
				return report, err
			}
			report.ResultSlots++
			file.Experiments = append(file.Experiments, g.toExperiment(rec, name))
			report.Records++
		}

		path := g.ConfigPath(alg, comb)
		if err := writeJSON(path, file); err != nil {
			return report, err
		}
		report.ConfigFiles = append(report.ConfigFiles, path)
	}
	sort.Strings(report.ConfigFiles)
	return report, nil
}

func (g *Generator) createSlot(id sweeptypes.Identity) error {
	path := id.ResultPath(g.ResultsDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}
	if !g.ResetResults {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat result slot %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		return fmt.Errorf("create result slot %s: %w", path, err)
	}
	return nil
}

func (g *Generator) toExperiment(rec sweeptypes.ConfigurationRecord, configName string) experiment {
	byz := make([]int, len(rec.FaultyMask))
	for i, bad := range rec.FaultyMask {
		if bad {
			byz[i] = 1
		}
	}
	dist := g.Axes.Distribution
	dist.N = rec.N
	if dist.LinksDelay == nil {
		dist.LinksDelay = map[string]map[string]float64{}
	}
	return experiment{
		Parameters: parameters{
			N:              rec.N,
			F:              rec.F,
			Percentage:     rec.P,
			ByzantineNodes: byz,
			Sender:         rec.Sender,
			HonestGroup0:   rec.Groups[0],
			HonestGroup1:   rec.Groups[1],
			Combination:    rec.Combination,
		},
		Distribution: dist,
		Topology: topology{
			Type:         g.Axes.Topology,
			InitialPeers: rec.N,
			TotalPeers:   rec.N,
		},
		LogFile:      filepath.ToSlash(rec.Identity.ResultPath(g.LogFileRoot)),
		Tests:        rec.Trials,
		Rounds:       rec.Rounds,
		Algorithm:    string(rec.Algorithm),
		OutputStatus: configName,
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
