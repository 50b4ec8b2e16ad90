// Package progress turns the simulator's append-only status logs into
// per-job completion percentages.
package progress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/lorenzo-12/quantas-link-delay/pkg/generator"
	"github.com/lorenzo-12/quantas-link-delay/pkg/runner"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

// Row is one rendered progress line.
type Row struct {
	Name     string `json:"name"`
	Group    string `json:"group"`
	Count    int    `json:"count"`
	Expected int    `json:"expected"`
	Percent  int    `json:"percent"`
}

func newRow(name, group string, count, expected int) Row {
	return Row{Name: name, Group: group, Count: count, Expected: expected, Percent: Percent(count, expected)}
}

// Percent is min(100, floor(100*count/expected)).
func Percent(count, expected int) int {
	if expected <= 0 {
		return 0
	}
	p := count * 100 / expected
	if p > 100 {
		return 100
	}
	return p
}

// Snapshot is a point-in-time read of every status log.
type Snapshot struct {
	Taken  time.Time `json:"taken"`
	Jobs   []Row     `json:"jobs"`
	Groups []Row     `json:"groups"`
	// Unknown counts lines that matched no tracked job.
	Unknown int `json:"unknown"`
}

// Done reports whether every tracked job reached its expected count.
func (s Snapshot) Done() bool {
	if len(s.Jobs) == 0 {
		return false
	}
	for _, r := range s.Jobs {
		if r.Percent < 100 {
			return false
		}
	}
	return true
}

// Tracker knows which tokens to count and how many trials each expects.
type Tracker struct {
	mu       sync.RWMutex
	logs     []string
	tracked  mapset.Set[string]
	expected map[string]int
	groups   map[string]string
}

func NewTracker(logs ...string) *Tracker {
	return &Tracker{
		logs:     logs,
		tracked:  mapset.NewSet[string](),
		expected: make(map[string]int),
		groups:   make(map[string]string),
	}
}

// Track adds a job token to count, expecting `expected` completion lines.
func (t *Tracker) Track(token, group string, expected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked.Add(token)
	t.expected[token] = expected
	t.groups[token] = group
}

// AddLog registers another status file; duplicates are ignored.
func (t *Tracker) AddLog(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.logs {
		if l == path {
			return
		}
	}
	t.logs = append(t.logs, path)
}

func (t *Tracker) Len() int {
	return t.tracked.Cardinality()
}

// Snapshot reads every log in full. Missing logs count as zero progress;
// unknown or partial lines are ignored.
func (t *Tracker) Snapshot() (Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[string]int, len(t.expected))
	unknown := 0
	for _, path := range t.logs {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("read status log: %w", err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			token := strings.ReplaceAll(strings.TrimSpace(sc.Text()), `"`, "")
			if token == "" {
				continue
			}
			if t.tracked.Contains(token) {
				counts[token]++
			} else {
				unknown++
			}
		}
	}

	snap := Snapshot{Taken: time.Now(), Unknown: unknown}
	groupCount := make(map[string]int)
	groupExpected := make(map[string]int)
	for token, exp := range t.expected {
		g := t.groups[token]
		snap.Jobs = append(snap.Jobs, newRow(token, g, counts[token], exp))
		groupCount[g] += counts[token]
		groupExpected[g] += exp
	}
	for g := range groupExpected {
		snap.Groups = append(snap.Groups, newRow(g, g, groupCount[g], groupExpected[g]))
	}
	sort.Slice(snap.Jobs, func(i, j int) bool {
		if snap.Jobs[i].Group != snap.Jobs[j].Group {
			return snap.Jobs[i].Group < snap.Jobs[j].Group
		}
		return snap.Jobs[i].Name < snap.Jobs[j].Name
	})
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].Name < snap.Groups[j].Name })
	return snap, nil
}

// TrackConfigs tracks every configuration file of algs under configDir,
// reading trials per file from the file itself.
func TrackConfigs(t *Tracker, configDir string, algs []sweeptypes.Algorithm, statusLog func(sweeptypes.Algorithm) string) error {
	for _, alg := range algs {
		jobs, err := runner.Discover(configDir, alg)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			_, trials, err := generator.ReadConfigFile(filepath.Join(configDir, alg.PeerClass(), j.Name()))
			if err != nil {
				return err
			}
			t.Track(j.Name(), string(alg), trials)
		}
		t.AddLog(statusLog(alg))
	}
	return nil
}
