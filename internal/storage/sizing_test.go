package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cellsim/internal/rnd"
)

func TestHeatingStorage_PicksModelVolume(t *testing.T) {
	r := rnd.New(1)
	for i := 0; i < 100; i++ {
		capWh, volume := HeatingStorage(10_000, 40, r)
		// 10 kW * 50..100 l/kW = 0.5..1.0 m³
		assert.Contains(t, []float64{0.5, 0.6, 0.75, 0.95}, volume)
		assert.InDelta(t, volume*1.162*983.2*40, capWh, 1e-6)
	}
}

func TestHeatingStorage_LargePowerUsesBiggestTank(t *testing.T) {
	_, volume := HeatingStorage(1e6, 40, rnd.New(3))
	assert.InDelta(t, 5, volume, 1e-9)
}

func TestLossParameter(t *testing.T) {
	capWh := 0.5 * 1.162 * 983.2 * 40
	loss := LossParameter(0.5, capWh)
	assert.Greater(t, loss, 0.0)
	assert.Less(t, loss, 0.01)

	assert.InDelta(t, 0, LossParameter(0.5, 0), 1e-12)
}

func TestHotWaterStorage(t *testing.T) {
	// n=1: W_2TN = 11640 Wh -> 0.17 m³ at 60 K -> 0.2 m³ tank
	assert.InDelta(t, 0.2*1.162*983.2*60, HotWaterStorage(1, 60), 1e-6)
	// very large demand falls back to the largest tank
	assert.InDelta(t, 5*1.162*983.2*60, HotWaterStorage(1e4, 60), 1e-6)
}
