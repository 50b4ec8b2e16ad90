package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

var ErrNotFound = errors.New("summary not found")

// Store keeps the latest summary per algorithm.
type Store interface {
	AddSummary(s *sweeptypes.Summary) error
	GetSummary(alg sweeptypes.Algorithm) (*sweeptypes.Summary, error)
	GetAllSummaries() ([]*sweeptypes.Summary, error)
}

type InMemoryStore struct {
	mu        sync.Mutex
	summaries map[sweeptypes.Algorithm]*sweeptypes.Summary
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{summaries: make(map[sweeptypes.Algorithm]*sweeptypes.Summary)}
}

// AddSummary replaces the stored summary of s.Algorithm.
func (s *InMemoryStore) AddSummary(sum *sweeptypes.Summary) error {
	if sum == nil || !sum.Algorithm.Valid() {
		return sweeptypes.ErrUnknownAlgorithm
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.Algorithm] = sum
	return nil
}

func (s *InMemoryStore) GetSummary(alg sweeptypes.Algorithm) (*sweeptypes.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[alg]
	if !ok {
		return nil, ErrNotFound
	}
	return sum, nil
}

func (s *InMemoryStore) GetAllSummaries() ([]*sweeptypes.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*sweeptypes.Summary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out, nil
}
