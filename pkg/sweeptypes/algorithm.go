package sweeptypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Algorithm identifies one of the broadcast variants under test.
type Algorithm string

const (
	Alg23      Algorithm = "alg23"
	Alg24      Algorithm = "alg24"
	Bracha     Algorithm = "bracha"
	ImbsRaynal Algorithm = "imbsraynal"
)

var ErrUnknownAlgorithm = errors.New("unknown algorithm")

type algorithmInfo struct {
	peerClass    string
	messageTypes []string
}

var algorithms = map[Algorithm]algorithmInfo{
	Alg23:      {peerClass: "Alg23Peer", messageTypes: []string{"ack"}},
	Alg24:      {peerClass: "Alg24Peer", messageTypes: []string{"ack", "vote1", "vote2"}},
	Bracha:     {peerClass: "BrachaPeer", messageTypes: []string{"echo", "ready"}},
	ImbsRaynal: {peerClass: "ImbsRaynalPeer", messageTypes: []string{"witness"}},
}

// Algorithms returns every known variant in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{Alg23, Alg24, Bracha, ImbsRaynal}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := algorithms[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
	return a, nil
}

// AlgorithmForPeer maps a peer class name such as "BrachaPeer" back to its variant.
func AlgorithmForPeer(peer string) (Algorithm, error) {
	for a, info := range algorithms {
		if info.peerClass == peer {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: no variant for peer class %q", ErrUnknownAlgorithm, peer)
}

// PeerClass is the simulator class (and config directory) implementing the variant.
func (a Algorithm) PeerClass() string {
	return algorithms[a].peerClass
}

// MessageTypes lists the message kinds whose behaviour a Combination perturbs.
func (a Algorithm) MessageTypes() []string {
	return append([]string(nil), algorithms[a].messageTypes...)
}

func (a Algorithm) Valid() bool {
	_, ok := algorithms[a]
	return ok
}

// Behavior is how faulty nodes treat one message type.
type Behavior string

const (
	Same     Behavior = "same"
	Silent   Behavior = "silent"
	Opposite Behavior = "opposite"
)

func Behaviors() []Behavior {
	return []Behavior{Same, Silent, Opposite}
}

func (b Behavior) Valid() bool {
	return b == Same || b == Silent || b == Opposite
}

// Combination assigns one Behavior per message type of an algorithm.
type Combination []Behavior

func ParseCombination(s string) (Combination, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty combination", ErrInvalidIdentity)
	}
	parts := strings.Split(s, "_")
	c := make(Combination, 0, len(parts))
	for _, p := range parts {
		b := Behavior(p)
		if !b.Valid() {
			return nil, fmt.Errorf("%w: unknown behavior %q in %q", ErrInvalidIdentity, p, s)
		}
		c = append(c, b)
	}
	return c, nil
}

func (c Combination) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = string(b)
	}
	return strings.Join(parts, "_")
}

// Validate checks the combination arity and tags against the algorithm.
func (c Combination) Validate(a Algorithm) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, a)
	}
	if want := len(algorithms[a].messageTypes); len(c) != want {
		return fmt.Errorf("%w: %s expects %d behaviors, got %d (%s)", ErrInvalidIdentity, a, want, len(c), c)
	}
	for _, b := range c {
		if !b.Valid() {
			return fmt.Errorf("%w: unknown behavior %q", ErrInvalidIdentity, b)
		}
	}
	return nil
}

// MarshalJSON writes a single tag as a bare string, the way the simulator reads it.
func (c Combination) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(string(c[0]))
	}
	tags := make([]string, len(c))
	for i, b := range c {
		tags[i] = string(b)
	}
	return json.Marshal(tags)
}

func (c *Combination) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Combination{Behavior(single)}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("combination: %w", err)
	}
	out := make(Combination, len(tags))
	for i, t := range tags {
		out[i] = Behavior(t)
	}
	*c = out
	return nil
}

// AllCombinations enumerates every Behavior tuple of the algorithm's arity.
func AllCombinations(a Algorithm) []Combination {
	arity := len(algorithms[a].messageTypes)
	if arity == 0 {
		return nil
	}
	out := []Combination{{}}
	for i := 0; i < arity; i++ {
		next := make([]Combination, 0, len(out)*3)
		for _, prefix := range out {
			for _, b := range Behaviors() {
				c := append(append(Combination{}, prefix...), b)
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}
