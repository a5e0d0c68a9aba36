package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellsim/internal/model"
	"cellsim/internal/rnd"
)

var defaultConfig = Config{
	CapacityWh:          100,
	ChargeEfficiency:    0.95,
	DischargeEfficiency: 0.95,
	SelfDischarge:       0.05,
	MaxPowerW:           10,
}

const dt = model.StepHours

func newStorage(t *testing.T, cfg Config) *Storage {
	t.Helper()
	s, err := New(cfg, 0)
	require.NoError(t, err)
	return s
}

func TestStorage_Validation(t *testing.T) {
	bad := []Config{
		{CapacityWh: -1, ChargeEfficiency: 1, DischargeEfficiency: 1},
		{CapacityWh: 10, ChargeEfficiency: 0, DischargeEfficiency: 1},
		{CapacityWh: 10, ChargeEfficiency: 1, DischargeEfficiency: 1.1},
		{CapacityWh: 10, ChargeEfficiency: 1, DischargeEfficiency: 1, SelfDischarge: -0.1},
		{CapacityWh: 10, ChargeEfficiency: 1, DischargeEfficiency: 1, MaxPowerW: -5},
		{CapacityWh: 10, ChargeEfficiency: 1, DischargeEfficiency: 1, InitialChargeWh: 11},
	}
	for _, cfg := range bad {
		_, err := New(cfg, 0)
		assert.ErrorIs(t, err, ErrInvalid, "%+v", cfg)
	}
}

func TestStorage_ChargeClampedToPowerLimit(t *testing.T) {
	cfg := defaultConfig
	cfg.SelfDischarge = 0
	s := newStorage(t, cfg)

	accepted, loss := s.Step(1000)
	assert.InDelta(t, 10, accepted, 1e-9)
	// 10 W * 0.95 * 0.25 h
	assert.InDelta(t, 2.375, s.Charge(), 1e-9)
	assert.InDelta(t, 10*0.05, loss, 1e-9)
}

func TestStorage_ChargeClampedToHeadroom(t *testing.T) {
	cfg := defaultConfig
	cfg.SelfDischarge = 0
	cfg.InitialChargeWh = 99
	s := newStorage(t, cfg)

	accepted, _ := s.Step(10)
	assert.InDelta(t, 100, s.Charge(), 1e-9)
	// 1 Wh stored needs 1/0.95 Wh at the terminals
	assert.InDelta(t, 1/0.95/dt, accepted, 1e-9)
}

func TestStorage_DischargeClampedToCharge(t *testing.T) {
	cfg := defaultConfig
	cfg.SelfDischarge = 0
	cfg.InitialChargeWh = 1
	s := newStorage(t, cfg)

	accepted, _ := s.Step(-10)
	assert.InDelta(t, 0, s.Charge(), 1e-9)
	assert.InDelta(t, -0.95/dt, accepted, 1e-9)
}

func TestStorage_SelfDischargeWithoutRequest(t *testing.T) {
	cfg := defaultConfig
	cfg.InitialChargeWh = 80
	s := newStorage(t, cfg)

	accepted, loss := s.Step(0)
	assert.InDelta(t, 0, accepted, 1e-12)
	// 80 Wh * 0.05 1/h * 0.25 h = 1 Wh
	assert.InDelta(t, 79, s.Charge(), 1e-9)
	assert.InDelta(t, 4, loss, 1e-9)
}

func TestStorage_ZeroCapacityIsNeutral(t *testing.T) {
	s := newStorage(t, Config{ChargeEfficiency: 1, DischargeEfficiency: 1, MaxPowerW: 10})

	accepted, loss := s.Step(10)
	assert.InDelta(t, 0, accepted, 1e-12)
	assert.InDelta(t, 0, loss, 1e-12)
	assert.InDelta(t, 0, s.RelativeCharge(), 1e-12)
}

func conservationTrial(t *testing.T, r func() float64, power float64) {
	t.Helper()
	cfg := defaultConfig
	cfg.InitialChargeWh = r() * cfg.CapacityWh
	s := newStorage(t, cfg)

	before := s.Charge()
	accepted, loss := s.Step(power)
	actual := (s.Charge() - before) + loss*dt
	if diff := accepted*dt - actual; diff > 1e-2 || diff < -1e-2 {
		t.Fatalf("energy mismatch %.4f Wh: start %.4f, accepted %.4f W, loss %.4f W",
			diff, before, accepted, loss)
	}
}

func TestStorage_EnergyConservation(t *testing.T) {
	trials := 1_000_000
	if testing.Short() {
		trials = 10_000
	}
	r := rnd.New(42)

	for i := 0; i < trials; i++ {
		conservationTrial(t, r.Float64, defaultConfig.MaxPowerW)
	}
	for i := 0; i < trials; i++ {
		conservationTrial(t, r.Float64, -defaultConfig.MaxPowerW)
	}
}

func TestStorage_BoundsUnderRandomSequence(t *testing.T) {
	r := rnd.New(7)
	cfg := defaultConfig
	cfg.InitialChargeWh = 50
	s := newStorage(t, cfg)

	start := s.Charge()
	var sumAccepted, sumLoss float64
	for i := 0; i < 100_000; i++ {
		p := (r.Float64()*2 - 1) * 40
		accepted, loss := s.Step(p)

		assert.LessOrEqual(t, accepted, cfg.MaxPowerW+1e-9)
		assert.GreaterOrEqual(t, accepted, -cfg.MaxPowerW-1e-9)
		assert.GreaterOrEqual(t, loss, 0.0)
		if s.Charge() < 0 || s.Charge() > cfg.CapacityWh {
			t.Fatalf("charge %.6f out of bounds at step %d", s.Charge(), i)
		}
		sumAccepted += accepted * dt
		sumLoss += loss * dt
	}
	assert.InDelta(t, sumAccepted, s.Charge()-start+sumLoss, 1e-2)
}

func TestStorage_History(t *testing.T) {
	cfg := defaultConfig
	cfg.SelfDischarge = 0
	s, err := New(cfg, 2)
	require.NoError(t, err)

	s.Step(4)
	s.Step(4)
	s.Step(4)
	h := s.History()
	require.Len(t, h, 2)
	assert.InDelta(t, 1.9, h[0], 1e-9)
	assert.InDelta(t, 2.85, h[1], 1e-9)
}
