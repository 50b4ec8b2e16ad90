package sweeptypes

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

var ErrInvalidIdentity = errors.New("invalid identity")

var resultNamePattern = regexp.MustCompile(`^n(\d+)_f(\d+)_p(\d+)\.json$`)

// Identity is the tuple that names a configuration and its result file.
type Identity struct {
	Algorithm   Algorithm   `json:"algorithm"`
	Combination Combination `json:"combination"`
	N           int         `json:"n"`
	F           int         `json:"f"`
	P           int         `json:"p"`
}

// FileName is the result file name, n<N>_f<F>_p<P>.json.
func (id Identity) FileName() string {
	return fmt.Sprintf("n%d_f%d_p%d.json", id.N, id.F, id.P)
}

// ResultPath is root/<alg>/<combination>/n<N>_f<F>_p<P>.json.
func (id Identity) ResultPath(root string) string {
	return filepath.Join(root, string(id.Algorithm), id.Combination.String(), id.FileName())
}

// Key is a slash separated form usable as a map key or database id.
func (id Identity) Key() string {
	return fmt.Sprintf("%s/%s/%s", id.Algorithm, id.Combination, id.FileName())
}

func (id Identity) String() string {
	return id.Key()
}

// Validate checks the tuple is one the generator could have produced.
func (id Identity) Validate() error {
	if err := id.Combination.Validate(id.Algorithm); err != nil {
		return err
	}
	if id.N <= 0 || id.F <= 0 || id.F >= id.N {
		return fmt.Errorf("%w: need 0 < f < n, got n=%d f=%d", ErrInvalidIdentity, id.N, id.F)
	}
	if id.P < 0 || id.P > 100 {
		return fmt.Errorf("%w: percentage %d out of [0,100]", ErrInvalidIdentity, id.P)
	}
	return nil
}

// ParseResultName decodes n, f and p from a bare result file name.
func ParseResultName(name string) (n, f, p int, err error) {
	m := resultNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: result name %q", ErrInvalidIdentity, name)
	}
	vals := make([]int, 3)
	for i := range vals {
		v, convErr := strconv.Atoi(m[i+1])
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: result name %q: %v", ErrInvalidIdentity, name, convErr)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// ParseResultPath inverts ResultPath for a file below root.
func ParseResultPath(root, path string) (Identity, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	comb := filepath.Dir(rel)
	alg := filepath.Dir(comb)
	if filepath.Dir(alg) != "." {
		return Identity{}, fmt.Errorf("%w: unexpected depth in %q", ErrInvalidIdentity, rel)
	}

	a, err := ParseAlgorithm(filepath.Base(alg))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	c, err := ParseCombination(filepath.Base(comb))
	if err != nil {
		return Identity{}, err
	}
	n, f, p, err := ParseResultName(filepath.Base(rel))
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Algorithm: a, Combination: c, N: n, F: f, P: p}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}
