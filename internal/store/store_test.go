package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellsim/internal/model"
)

func makeConditions(temps []float64, start time.Time) []model.BoundaryCondition {
	conds := make([]model.BoundaryCondition, len(temps))
	for i, v := range temps {
		conds[i] = model.BoundaryCondition{
			Time:               start.Add(time.Duration(i) * Step),
			AmbientTemperature: v,
		}
	}
	return conds
}

var startTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStore_AddAndQuery(t *testing.T) {
	s := New()
	s.Add(makeConditions([]float64{1, 2, 3, 4, 5}, startTime))

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, startTime.Add(2*Step), s.At(2).Time)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, s.AmbientTemperatures())
}

func TestStore_SortsAndReplaces(t *testing.T) {
	s := New()
	conds := makeConditions([]float64{1, 2, 3}, startTime)
	s.Add([]model.BoundaryCondition{conds[2], conds[0]})
	s.Add([]model.BoundaryCondition{conds[1]})

	replaced := conds[0]
	replaced.AmbientTemperature = 10
	s.Add([]model.BoundaryCondition{replaced})

	assert.Equal(t, []float64{10, 2, 3}, s.AmbientTemperatures())
}

func TestStore_TimeRange(t *testing.T) {
	s := New()
	_, ok := s.TimeRange()
	assert.False(t, ok)

	s.Add(makeConditions([]float64{1, 2, 3}, startTime))
	tr, ok := s.TimeRange()
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(2*Step), tr.End)
	assert.Equal(t, 3, tr.Steps())
}

func TestStore_Gaps(t *testing.T) {
	s := New()
	s.Add(makeConditions([]float64{1, 2}, startTime))
	s.Add(makeConditions([]float64{3}, startTime.Add(time.Hour)))

	gaps := s.Gaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, startTime.Add(Step), gaps[0].Start)
	assert.Equal(t, startTime.Add(time.Hour), gaps[0].End)
}

func TestStore_InRange(t *testing.T) {
	s := New()
	s.Add(makeConditions([]float64{1, 2, 3, 4, 5}, startTime))

	result := s.InRange(startTime.Add(Step), startTime.Add(3*Step))
	require.Len(t, result, 2)
	assert.InDelta(t, 2.0, result[0].AmbientTemperature, 0.001)
	assert.InDelta(t, 3.0, result[1].AmbientTemperature, 0.001)

	assert.Empty(t, s.InRange(startTime.Add(10*Step), startTime.Add(11*Step)))
}

func TestStore_ConditionAt(t *testing.T) {
	s := New()
	s.Add(makeConditions([]float64{1, 2, 3}, startTime))

	c, ok := s.ConditionAt(startTime.Add(Step + time.Minute))
	require.True(t, ok)
	assert.InDelta(t, 2.0, c.AmbientTemperature, 0.001)

	_, ok = s.ConditionAt(startTime.Add(-time.Minute))
	assert.False(t, ok)
}
