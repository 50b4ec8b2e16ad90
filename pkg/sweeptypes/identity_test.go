package sweeptypes

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func TestResultPathRoundTrip(t *testing.T) {
	root := filepath.Join("tmp", "results_all")
	id := Identity{Algorithm: Alg24, Combination: Combination{Same, Silent, Opposite}, N: 100, F: 25, P: 80}

	path := id.ResultPath(root)
	if want := filepath.Join(root, "alg24", "same_silent_opposite", "n100_f25_p80.json"); path != want {
		t.Fatalf("ResultPath = %s, want %s", path, want)
	}
	back, err := ParseResultPath(root, path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Key() != id.Key() {
		t.Errorf("round trip = %s, want %s", back, id)
	}
}

func TestParseResultPathRejects(t *testing.T) {
	root := "results_all"
	cases := []string{
		filepath.Join(root, "alg24", "same_silent", "n100_f25_p80.json"),
		filepath.Join(root, "paxos", "same", "n100_f25_p80.json"),
		filepath.Join(root, "bracha", "same_same", "n100_f100_p80.json"),
		filepath.Join(root, "bracha", "same_same", "n100_f25_p180.json"),
		filepath.Join(root, "bracha", "same_same", "results.json"),
		filepath.Join(root, "bracha", "n100_f25_p80.json"),
	}
	for _, path := range cases {
		if _, err := ParseResultPath(root, path); !errors.Is(err, ErrInvalidIdentity) {
			t.Errorf("%s: err = %v, want ErrInvalidIdentity", path, err)
		}
	}
}

func TestCombinationJSON(t *testing.T) {
	single, _ := json.Marshal(Combination{Silent})
	if string(single) != `"silent"` {
		t.Errorf("single tag = %s", single)
	}
	multi, _ := json.Marshal(Combination{Same, Opposite})
	if string(multi) != `["same","opposite"]` {
		t.Errorf("multi tag = %s", multi)
	}

	var c Combination
	if err := json.Unmarshal([]byte(`"opposite"`), &c); err != nil || c.String() != "opposite" {
		t.Errorf("unmarshal single = %v (%v)", c, err)
	}
	if err := json.Unmarshal([]byte(`["same","silent","same"]`), &c); err != nil || c.String() != "same_silent_same" {
		t.Errorf("unmarshal list = %v (%v)", c, err)
	}
}

func TestAllCombinations(t *testing.T) {
	want := map[Algorithm]int{Alg23: 3, Bracha: 9, ImbsRaynal: 3, Alg24: 27}
	for alg, n := range want {
		combs := AllCombinations(alg)
		if len(combs) != n {
			t.Errorf("%s: %d combinations, want %d", alg, len(combs), n)
		}
		seen := make(map[string]bool)
		for _, c := range combs {
			if err := c.Validate(alg); err != nil {
				t.Errorf("%s: %v", alg, err)
			}
			seen[c.String()] = true
		}
		if len(seen) != n {
			t.Errorf("%s: duplicate combinations", alg)
		}
	}
}

func TestAlgorithmPeerClass(t *testing.T) {
	for _, alg := range Algorithms() {
		back, err := AlgorithmForPeer(alg.PeerClass())
		if err != nil || back != alg {
			t.Errorf("%s -> %s -> %s (%v)", alg, alg.PeerClass(), back, err)
		}
	}
	if _, err := ParseAlgorithm("cool"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("ParseAlgorithm(cool) = %v", err)
	}
}
