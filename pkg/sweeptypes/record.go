package sweeptypes

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

var ErrInvalidRecord = errors.New("invalid configuration record")

// ConfigurationRecord is one trial batch definition handed to the simulator.
// Records are never mutated once generated.
type ConfigurationRecord struct {
	Identity
	FaultyMask []bool   `json:"faulty_mask"`
	Sender     int      `json:"sender"`
	Groups     [2][]int `json:"groups"`
	Trials     int      `json:"trials"`
	Rounds     int      `json:"rounds"`
}

// Faulty returns the indices set in FaultyMask in ascending order.
func (r ConfigurationRecord) Faulty() []int {
	out := make([]int, 0, r.F)
	for i, bad := range r.FaultyMask {
		if bad {
			out = append(out, i)
		}
	}
	return out
}

// GroupSize is the deterministic size of the first observation group.
func GroupSize(n, f, p int) int {
	return (n - f) * p / 100
}

func (r ConfigurationRecord) Validate() error {
	if err := r.Identity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.Trials <= 0 || r.Rounds <= 0 {
		return fmt.Errorf("%w: trials=%d rounds=%d must be positive", ErrInvalidRecord, r.Trials, r.Rounds)
	}
	if len(r.FaultyMask) != r.N {
		return fmt.Errorf("%w: mask length %d, n=%d", ErrInvalidRecord, len(r.FaultyMask), r.N)
	}

	faulty := mapset.NewThreadUnsafeSet(r.Faulty()...)
	if faulty.Cardinality() != r.F {
		return fmt.Errorf("%w: %d faulty nodes marked, f=%d", ErrInvalidRecord, faulty.Cardinality(), r.F)
	}
	if !faulty.Contains(r.Sender) {
		return fmt.Errorf("%w: sender %d is not faulty", ErrInvalidRecord, r.Sender)
	}

	honest := mapset.NewThreadUnsafeSet[int]()
	for i, bad := range r.FaultyMask {
		if !bad {
			honest.Add(i)
		}
	}

	g0 := mapset.NewThreadUnsafeSet(r.Groups[0]...)
	g1 := mapset.NewThreadUnsafeSet(r.Groups[1]...)
	if g0.Cardinality() != len(r.Groups[0]) || g1.Cardinality() != len(r.Groups[1]) {
		return fmt.Errorf("%w: duplicate index inside a group", ErrInvalidRecord)
	}
	if !g0.Intersect(g1).IsEmpty() {
		return fmt.Errorf("%w: groups overlap", ErrInvalidRecord)
	}
	if !g0.Union(g1).Equal(honest) {
		return fmt.Errorf("%w: groups do not cover exactly the non-faulty set", ErrInvalidRecord)
	}
	if want := GroupSize(r.N, r.F, r.P); len(r.Groups[0]) != want {
		return fmt.Errorf("%w: group 0 has %d nodes, want %d", ErrInvalidRecord, len(r.Groups[0]), want)
	}
	return nil
}
