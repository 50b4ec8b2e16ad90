package generator

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

func newTestGenerator(t *testing.T, axes Axes) *Generator {
	t.Helper()
	dir := t.TempDir()
	g, err := New(axes, filepath.Join(dir, "quantas"), filepath.Join(dir, "results_all"),
		WithRand(rand.New(rand.NewSource(7))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func smallAxes() Axes {
	axes := DefaultAxes()
	axes.N = []int{10}
	axes.F = []int{3, 4}
	axes.P = []int{100, 50, 0}
	axes.Trials = 5
	axes.Rounds = 20
	return axes
}

func TestRecordInvariants(t *testing.T) {
	g := newTestGenerator(t, DefaultAxes())
	for _, alg := range sweeptypes.Algorithms() {
		recs, errs := g.Records(alg)
		if len(errs) != 0 {
			t.Fatalf("%s: unexpected errors %v", alg, errs)
		}
		want := len(sweeptypes.AllCombinations(alg)) * 5 * 6
		if len(recs) != want {
			t.Fatalf("%s: %d records, want %d", alg, len(recs), want)
		}
		for _, r := range recs {
			if err := r.Validate(); err != nil {
				t.Fatalf("%s: %v", r.Identity, err)
			}
			if len(r.Groups[0]) != (r.N-r.F)*r.P/100 {
				t.Errorf("%s: group 0 size %d", r.Identity, len(r.Groups[0]))
			}
			if len(r.Groups[0])+len(r.Groups[1]) != r.N-r.F {
				t.Errorf("%s: groups cover %d nodes, want %d", r.Identity, len(r.Groups[0])+len(r.Groups[1]), r.N-r.F)
			}
		}
	}
}

func TestCombinationCounts(t *testing.T) {
	g := newTestGenerator(t, DefaultAxes())
	cases := map[sweeptypes.Algorithm]int{
		sweeptypes.Alg23:      3,
		sweeptypes.ImbsRaynal: 3,
		sweeptypes.Bracha:     9,
		sweeptypes.Alg24:      27,
	}
	for alg, want := range cases {
		if got := len(g.Combinations(alg)); got != want {
			t.Errorf("%s: %d combinations, want %d", alg, got, want)
		}
	}
}

func TestRecordRejectsFaultyAboveN(t *testing.T) {
	g := newTestGenerator(t, smallAxes())
	id := sweeptypes.Identity{Algorithm: sweeptypes.Alg23, Combination: sweeptypes.Combination{sweeptypes.Same}, N: 4, F: 4, P: 50}
	if _, err := g.Record(id); !errors.Is(err, sweeptypes.ErrInvalidRecord) {
		t.Errorf("error = %v, want ErrInvalidRecord", err)
	}
}

func TestWriteLayout(t *testing.T) {
	g := newTestGenerator(t, smallAxes())
	report, err := g.Write(sweeptypes.Bracha)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(report.ConfigFiles) != 9 {
		t.Fatalf("%d config files, want 9", len(report.ConfigFiles))
	}
	if report.Records != 9*2*3 || report.ResultSlots != report.Records {
		t.Errorf("report = %+v", report)
	}

	path := filepath.Join(g.ConfigDir, "BrachaPeer", "bracha_silent_opposite.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var file struct {
		Experiments []struct {
			Parameters struct {
				N              int      `json:"n"`
				F              int      `json:"f"`
				Percentage     int      `json:"percentage"`
				ByzantineNodes []int    `json:"byzantine_nodes"`
				Sender         int      `json:"sender"`
				HonestGroup0   []int    `json:"honest_group_0"`
				HonestGroup1   []int    `json:"honest_group_1"`
				Combination    []string `json:"combination"`
			} `json:"parameters"`
			LogFile      string `json:"logFile"`
			Tests        int    `json:"tests"`
			Algorithm    string `json:"algorithm"`
			OutputStatus string `json:"output_status"`
		} `json:"experiments"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if len(file.Experiments) != 6 {
		t.Fatalf("%d experiments, want 6", len(file.Experiments))
	}
	e := file.Experiments[0]
	if e.LogFile != "results_all/bracha/silent_opposite/n10_f3_p100.json" {
		t.Errorf("logFile = %q", e.LogFile)
	}
	if e.OutputStatus != "bracha_silent_opposite.json" || e.Algorithm != "bracha" || e.Tests != 5 {
		t.Errorf("unexpected header %+v", e)
	}
	if len(e.Parameters.Combination) != 2 || e.Parameters.Combination[0] != "silent" {
		t.Errorf("combination = %v", e.Parameters.Combination)
	}
	ones := 0
	for _, b := range e.Parameters.ByzantineNodes {
		ones += b
	}
	if ones != 3 || e.Parameters.ByzantineNodes[e.Parameters.Sender] != 1 {
		t.Errorf("byzantine vector %v sender %d", e.Parameters.ByzantineNodes, e.Parameters.Sender)
	}
	if e.Parameters.HonestGroup1 == nil {
		t.Error("honest_group_1 must encode as an array")
	}

	slot := filepath.Join(g.ResultsDir, "bracha", "silent_opposite", "n10_f4_p0.json")
	body, err := os.ReadFile(slot)
	if err != nil {
		t.Fatalf("result slot missing: %v", err)
	}
	if string(body) != "{}" {
		t.Errorf("slot content %q", body)
	}
}

func TestWriteIsIdempotentAndKeepsResults(t *testing.T) {
	g := newTestGenerator(t, smallAxes())
	first, err := g.Write(sweeptypes.Alg23)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	done := filepath.Join(g.ResultsDir, "alg23", "same", "n10_f3_p50.json")
	if err := os.WriteFile(done, []byte(`{"Results":{"delivery_time":[1,2]}}`), 0644); err != nil {
		t.Fatal(err)
	}

	second, err := g.Write(sweeptypes.Alg23)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if len(first.ConfigFiles) != len(second.ConfigFiles) {
		t.Fatalf("config files changed: %v vs %v", first.ConfigFiles, second.ConfigFiles)
	}
	for i := range first.ConfigFiles {
		if first.ConfigFiles[i] != second.ConfigFiles[i] {
			t.Errorf("file %d: %s vs %s", i, first.ConfigFiles[i], second.ConfigFiles[i])
		}
	}
	body, _ := os.ReadFile(done)
	if string(body) == "{}" {
		t.Error("completed result was truncated by regeneration")
	}

	g.ResetResults = true
	if _, err := g.Write(sweeptypes.Alg23); err != nil {
		t.Fatal(err)
	}
	body, _ = os.ReadFile(done)
	if string(body) != "{}" {
		t.Errorf("reset did not truncate, got %q", body)
	}
}

func TestReadConfigFile(t *testing.T) {
	g := newTestGenerator(t, smallAxes())
	if _, err := g.Write(sweeptypes.ImbsRaynal); err != nil {
		t.Fatal(err)
	}
	records, trials, err := ReadConfigFile(g.ConfigPath(sweeptypes.ImbsRaynal, sweeptypes.Combination{sweeptypes.Opposite}))
	if err != nil {
		t.Fatal(err)
	}
	if records != 6 || trials != 30 {
		t.Errorf("records=%d trials=%d, want 6 and 30", records, trials)
	}
}

func TestAxesValidate(t *testing.T) {
	cases := map[string]func(*Axes){
		"empty f":       func(a *Axes) { a.F = nil },
		"duplicate p":   func(a *Axes) { a.P = []int{50, 50} },
		"p above 100":   func(a *Axes) { a.P = []int{120} },
		"zero trials":   func(a *Axes) { a.Trials = 0 },
		"wrong arity":   func(a *Axes) { a.Combinations[sweeptypes.Bracha] = []sweeptypes.Combination{{sweeptypes.Same}} },
		"unknown tag":   func(a *Axes) { a.Combinations[sweeptypes.Alg23] = []sweeptypes.Combination{{"loud"}} },
		"negative f":    func(a *Axes) { a.F = []int{-1} },
		"duplicate cmb": func(a *Axes) { a.Combinations[sweeptypes.Alg23] = []sweeptypes.Combination{{"same"}, {"same"}} },
		"f equals n":    func(a *Axes) { a.N = []int{40}; a.F = []int{19, 40} },
		"f above one n": func(a *Axes) { a.N = []int{30, 100}; a.F = []int{25, 33} },
	}
	for name, mutate := range cases {
		axes := DefaultAxes()
		mutate(&axes)
		if err := axes.Validate(); !errors.Is(err, ErrInvalidAxes) {
			t.Errorf("%s: error = %v, want ErrInvalidAxes", name, err)
		}
	}
	if err := DefaultAxes().Validate(); err != nil {
		t.Errorf("default axes invalid: %v", err)
	}
}

func TestLoadAxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	yaml := `
n: [50]
f: [10, 16]
p: [100, 50]
trials: 10
combinations:
  bracha: [same_silent, opposite_opposite]
  alg23: []
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	axes, err := LoadAxes(path)
	if err != nil {
		t.Fatalf("LoadAxes: %v", err)
	}
	if axes.N[0] != 50 || len(axes.F) != 2 || axes.Trials != 10 || axes.Rounds != 1000 {
		t.Errorf("axes = %+v", axes)
	}
	if got := len(axes.Combinations[sweeptypes.Bracha]); got != 2 {
		t.Errorf("bracha combinations = %d, want 2", got)
	}
	if got := len(axes.Combinations[sweeptypes.Alg23]); got != 3 {
		t.Errorf("alg23 combinations = %d, want 3", got)
	}
	if _, ok := axes.Combinations[sweeptypes.Alg24]; ok {
		t.Error("alg24 should not be swept when combinations are listed")
	}
}
