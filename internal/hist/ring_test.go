package hist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_DisabledIsNil(t *testing.T) {
	r := New(0)
	assert.Nil(t, r)

	// nil ring must be usable
	r.Save(1)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Cap())
	assert.Nil(t, r.Values())
	_, ok := r.Last()
	assert.False(t, ok)
}

func TestRing_PartialFill(t *testing.T) {
	r := New(4)
	r.Save(1)
	r.Save(2)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []float64{1, 2}, r.Values())
	last, ok := r.Last()
	assert.True(t, ok)
	assert.InDelta(t, 2, last, 1e-9)
}

func TestRing_WrapsOldestFirst(t *testing.T) {
	r := New(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.Save(v)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []float64{3, 4, 5}, r.Values())
	last, _ := r.Last()
	assert.InDelta(t, 5, last, 1e-9)
}

func TestRing_LastAtWrapBoundary(t *testing.T) {
	r := New(2)
	r.Save(7)
	r.Save(8)
	last, ok := r.Last()
	assert.True(t, ok)
	assert.InDelta(t, 8, last, 1e-9)
}

func TestRing_Reset(t *testing.T) {
	r := New(2)
	r.Save(1)
	r.Save(2)
	r.Save(3)
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 2, r.Cap())
}
