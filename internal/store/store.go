// Package store keeps the boundary conditions of a scenario in memory,
// ordered by time.
package store

import (
	"sort"
	"sync"
	"time"

	"cellsim/internal/model"
)

// Step is the spacing of consecutive boundary conditions.
const Step = 15 * time.Minute

// Store holds boundary conditions sorted by timestamp, one per timestamp.
type Store struct {
	mu    sync.RWMutex
	conds []model.BoundaryCondition
}

func New() *Store {
	return &Store{}
}

// Add inserts conditions and keeps the series sorted. A condition with a
// timestamp already present replaces the stored one.
func (s *Store) Add(conds []model.BoundaryCondition) {
	if len(conds) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conds = append(s.conds, conds...)
	sort.SliceStable(s.conds, func(i, j int) bool {
		return s.conds[i].Time.Before(s.conds[j].Time)
	})

	// dedupe, the later insert wins
	out := s.conds[:0]
	for i, c := range s.conds {
		if i+1 < len(s.conds) && s.conds[i+1].Time.Equal(c.Time) {
			continue
		}
		out = append(out, c)
	}
	s.conds = out
}

// Len returns the number of stored conditions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conds)
}

// At returns the i-th condition in chronological order.
func (s *Store) At(i int) model.BoundaryCondition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conds[i]
}

// TimeRange returns the time range covered by the series.
func (s *Store) TimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.conds) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: s.conds[0].Time,
		End:   s.conds[len(s.conds)-1].Time,
	}, true
}

// Gaps returns the spans between consecutive conditions that are further
// apart than one step.
func (s *Store) Gaps() []model.TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gaps []model.TimeRange
	for i := 1; i < len(s.conds); i++ {
		prev, cur := s.conds[i-1].Time, s.conds[i].Time
		if cur.Sub(prev) > Step {
			gaps = append(gaps, model.TimeRange{Start: prev, End: cur})
		}
	}
	return gaps
}

// InRange returns conditions between start (inclusive) and end (exclusive).
func (s *Store) InRange(start, end time.Time) []model.BoundaryCondition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := sort.Search(len(s.conds), func(i int) bool {
		return !s.conds[i].Time.Before(start)
	})
	endIdx := sort.Search(len(s.conds), func(i int) bool {
		return !s.conds[i].Time.Before(end)
	})
	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.BoundaryCondition, endIdx-startIdx)
	copy(result, s.conds[startIdx:endIdx])
	return result
}

// ConditionAt returns the most recent condition at or before t.
func (s *Store) ConditionAt(t time.Time) (model.BoundaryCondition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := sort.Search(len(s.conds), func(i int) bool {
		return s.conds[i].Time.After(t)
	})
	if idx == 0 {
		return model.BoundaryCondition{}, false
	}
	return s.conds[idx-1], true
}

// AmbientTemperatures returns the ambient temperature series.
func (s *Store) AmbientTemperatures() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.conds))
	for i, c := range s.conds {
		out[i] = c.AmbientTemperature
	}
	return out
}
