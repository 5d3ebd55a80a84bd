package plan

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrPlanNotFound is returned when no plan is registered for a flow
var ErrPlanNotFound = errors.New("plan not found")

// Store holds compiled plans by flow id. Plans are swapped whole on reload.
type Store struct {
	mu    sync.RWMutex
	plans map[string]*CompiledPlan
}

func NewStore() *Store {
	return &Store{plans: make(map[string]*CompiledPlan)}
}

func (s *Store) Put(p *CompiledPlan) {
	s.mu.Lock()
	s.plans[p.FlowID()] = p
	s.mu.Unlock()
}

// Replace swaps the full set of plans
func (s *Store) Replace(plans []*CompiledPlan) {
	next := make(map[string]*CompiledPlan, len(plans))
	for _, p := range plans {
		next[p.FlowID()] = p
	}
	s.mu.Lock()
	s.plans = next
	s.mu.Unlock()
}

func (s *Store) Get(flowID string) (*CompiledPlan, error) {
	s.mu.RLock()
	p, ok := s.plans[flowID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, flowID)
	}
	return p, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plans)
}

// List returns the loaded plans ordered by flow id
func (s *Store) List() []*CompiledPlan {
	s.mu.RLock()
	out := make([]*CompiledPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FlowID() < out[j].FlowID() })
	return out
}
