package generator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var ErrInvalidAxes = errors.New("invalid sweep axes")

// Distribution is the simulator's link delay model.
type Distribution struct {
	Type                string                        `json:"type" yaml:"type"`
	MaxDelay            int                           `json:"maxDelay" yaml:"max_delay"`
	GlobalDelay         int                           `json:"global_delay" yaml:"global_delay"`
	GlobalDelaysSetting string                        `json:"global_delays_setting" yaml:"global_delays_setting"`
	MinLambda           float64                       `json:"min_lambda" yaml:"min_lambda"`
	MaxLambda           float64                       `json:"max_lambda" yaml:"max_lambda"`
	N                   int                           `json:"n"`
	LinksDelay          map[string]map[string]float64 `json:"links_delay"`
}

// Axes describe the full parameter sweep.
type Axes struct {
	N            []int
	F            []int
	P            []int
	Trials       int
	Rounds       int
	Topology     string
	Distribution Distribution
	Combinations map[sweeptypes.Algorithm][]sweeptypes.Combination
}

// DefaultAxes is the sweep the BRB comparison was run with.
func DefaultAxes() Axes {
	combos := make(map[sweeptypes.Algorithm][]sweeptypes.Combination)
	for _, a := range sweeptypes.Algorithms() {
		combos[a] = sweeptypes.AllCombinations(a)
	}
	return Axes{
		N:        []int{100},
		F:        []int{19, 20, 25, 33, 40},
		P:        []int{100, 90, 80, 70, 60, 50},
		Trials:   100,
		Rounds:   1000,
		Topology: "fullyComplete",
		Distribution: Distribution{
			Type:                "GEOMETRIC",
			MaxDelay:            10,
			GlobalDelay:         5,
			GlobalDelaysSetting: "uniform",
			MinLambda:           0.05,
			MaxLambda:           2,
		},
		Combinations: combos,
	}
}

// Validate reports malformed axes. Duplicate axis values are rejected since
// they would generate the same identity twice within one sweep.
func (a Axes) Validate() error {
	if len(a.N) == 0 || len(a.F) == 0 || len(a.P) == 0 {
		return fmt.Errorf("%w: n, f and p need at least one value", ErrInvalidAxes)
	}
	if a.Trials <= 0 || a.Rounds <= 0 {
		return fmt.Errorf("%w: trials and rounds must be positive", ErrInvalidAxes)
	}
	for name, values := range map[string][]int{"n": a.N, "f": a.F, "p": a.P} {
		seen := make(map[int]bool, len(values))
		for _, v := range values {
			if seen[v] {
				return fmt.Errorf("%w: duplicate %s value %d", ErrInvalidAxes, name, v)
			}
			seen[v] = true
		}
	}
	for _, n := range a.N {
		if n <= 0 {
			return fmt.Errorf("%w: n=%d", ErrInvalidAxes, n)
		}
	}
	for _, f := range a.F {
		if f <= 0 {
			return fmt.Errorf("%w: f=%d", ErrInvalidAxes, f)
		}
		for _, n := range a.N {
			if f >= n {
				return fmt.Errorf("%w: f=%d must be below n=%d", ErrInvalidAxes, f, n)
			}
		}
	}
	for _, p := range a.P {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: p=%d out of [0,100]", ErrInvalidAxes, p)
		}
	}
	for alg, combos := range a.Combinations {
		seen := make(map[string]bool, len(combos))
		for _, c := range combos {
			if err := c.Validate(alg); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAxes, err)
			}
			if seen[c.String()] {
				return fmt.Errorf("%w: duplicate combination %s for %s", ErrInvalidAxes, c, alg)
			}
			seen[c.String()] = true
		}
	}
	return nil
}

type axesFile struct {
	N            []int               `yaml:"n"`
	F            []int               `yaml:"f"`
	P            []int               `yaml:"p"`
	Trials       int                 `yaml:"trials"`
	Rounds       int                 `yaml:"rounds"`
	Topology     string              `yaml:"topology"`
	Distribution *Distribution       `yaml:"distribution"`
	Combinations map[string][]string `yaml:"combinations"`
}

// LoadAxes reads a YAML sweep description. Omitted fields keep DefaultAxes
// values; an algorithm listed with an empty combination list gets every
// combination of its arity.
func LoadAxes(path string) (Axes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Axes{}, fmt.Errorf("read axes %s: %w", path, err)
	}
	var raw axesFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Axes{}, fmt.Errorf("%w: %s: %v", ErrInvalidAxes, path, err)
	}

	axes := DefaultAxes()
	if raw.N != nil {
		axes.N = raw.N
	}
	if raw.F != nil {
		axes.F = raw.F
	}
	if raw.P != nil {
		axes.P = raw.P
	}
	if raw.Trials != 0 {
		axes.Trials = raw.Trials
	}
	if raw.Rounds != 0 {
		axes.Rounds = raw.Rounds
	}
	if raw.Topology != "" {
		axes.Topology = raw.Topology
	}
	if raw.Distribution != nil {
		axes.Distribution = *raw.Distribution
	}
	if raw.Combinations != nil {
		axes.Combinations = make(map[sweeptypes.Algorithm][]sweeptypes.Combination)
		for name, list := range raw.Combinations {
			alg, err := sweeptypes.ParseAlgorithm(name)
			if err != nil {
				return Axes{}, fmt.Errorf("%w: %v", ErrInvalidAxes, err)
			}
			if len(list) == 0 {
				axes.Combinations[alg] = sweeptypes.AllCombinations(alg)
				continue
			}
			for _, s := range list {
				c, err := sweeptypes.ParseCombination(s)
				if err != nil {
					return Axes{}, fmt.Errorf("%w: %v", ErrInvalidAxes, err)
				}
				axes.Combinations[alg] = append(axes.Combinations[alg], c)
			}
		}
	}
	return axes, axes.Validate()
}
