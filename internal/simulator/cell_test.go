package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/model"
	"cellsim/internal/rnd"
	"cellsim/internal/storage"
	"cellsim/internal/thermal"
)

// conditions is an in-memory boundary condition series.
type conditions []model.BoundaryCondition

func (c conditions) Len() int                         { return len(c) }
func (c conditions) At(i int) model.BoundaryCondition { return c[i] }

// makeConditions returns n winter steps with a midday sun.
func makeConditions(n int) conditions {
	out := make(conditions, n)
	for i := range out {
		ts := startTime.Add(time.Duration(i) * 15 * time.Minute)
		bc := winterCondition(200+float64(i%7)*10, -3+float64(i%5))
		bc.Time = ts
		bc.WindSpeed = 6
		if h := ts.Hour(); h >= 9 && h < 15 {
			bc.GlobalIrradiance = 300
			bc.DirectIrradiance = 200
			bc.DiffuseIrradiance = 100
			bc.SolarElevation = 20
			bc.SolarAzimuth = float64(h-12) * 15
		}
		out[i] = bc
	}
	return out
}

var testWind = component.WindConfig{
	HubHeight:   60,
	RotorRadius: 20,
	CutInSpeed:  3,
	RatedSpeed:  12,
	CutOutSpeed: 25,
	Efficiency:  0.4,
}

func newTestBuilding(t *testing.T, r *rand.Rand, agents int, chp bool) *Building {
	t.Helper()
	b, err := NewBuilding(testBuildingConfig(), -12, rnd.Child(r), 100)
	require.NoError(t, err)
	for i := 0; i < agents; i++ {
		a, err := NewAgent(model.PHH, rnd.Child(r))
		require.NoError(t, err)
		b.AddAgent(a)
	}
	require.NoError(t, b.AddDimensionedPV(1000, 100))
	if chp {
		require.NoError(t, b.AddDimensionedCHP(100))
	}
	return b
}

// buildTestCell creates a cell with two buildings, a separate business and
// a sub cell with one more building.
func buildTestCell(t *testing.T, seed uint64) *Cell {
	t.Helper()
	r := rnd.New(seed)

	c, err := NewCell(1000, -12, 100)
	require.NoError(t, err)
	c.AddBuilding(newTestBuilding(t, r, 2, false))
	c.AddBuilding(newTestBuilding(t, r, 3, true))

	a, err := NewSepBSLAgent(model.BSLa, rnd.Child(r), 100)
	require.NoError(t, err)
	require.NoError(t, a.AddDimensionedPV(1000, 100))
	c.AddSepBSLAgent(a)

	sub, err := NewCell(1000, -12, 100)
	require.NoError(t, err)
	sub.AddBuilding(newTestBuilding(t, r, 1, false))
	c.AddSubCell(sub)

	pv, err := component.NewPVWithArea(20, 100)
	require.NoError(t, err)
	c.AddPV(pv)
	w, err := component.NewWind(testWind, 100)
	require.NoError(t, err)
	c.AddWind(w)
	return c
}

func TestNewCell_Invalid(t *testing.T) {
	_, err := NewCell(0, -12, 0)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCell_Additivity(t *testing.T) {
	c := buildTestCell(t, 1)
	src := makeConditions(60)
	for i := 0; i < src.Len(); i++ {
		c.Step(src.At(i))
	}

	genE, loadE, genT, loadT := c.History()
	require.Len(t, genE, 60)

	sum := func(rows ...[]float64) []float64 {
		out := make([]float64, len(rows[0]))
		for _, row := range rows {
			for i, v := range row {
				out[i] += v
			}
		}
		return out
	}

	var memberGenE, memberLoadE, memberGenT, memberLoadT [][]float64
	for _, b := range c.Buildings() {
		h := b.History()
		memberGenE = append(memberGenE, h.GenE)
		memberLoadE = append(memberLoadE, h.LoadE)
		memberGenT = append(memberGenT, h.GenT)
		memberLoadT = append(memberLoadT, h.LoadT)
	}
	for _, sub := range c.SubCells() {
		ge, le, gt, lt := sub.History()
		memberGenE = append(memberGenE, ge)
		memberLoadE = append(memberLoadE, le)
		memberGenT = append(memberGenT, gt)
		memberLoadT = append(memberLoadT, lt)
	}
	for _, a := range c.SepBSLAgents() {
		ge, le := a.History()
		memberGenE = append(memberGenE, ge)
		memberLoadE = append(memberLoadE, le)
	}
	memberGenE = append(memberGenE, c.PV().History(), c.Wind().History())

	assert.InDeltaSlice(t, sum(memberGenE...), genE, 1e-6)
	assert.InDeltaSlice(t, sum(memberLoadE...), loadE, 1e-6)
	assert.InDeltaSlice(t, sum(memberGenT...), genT, 1e-6)
	assert.InDeltaSlice(t, sum(memberLoadT...), loadT, 1e-6)
}

func TestCell_ParallelMatchesSequential(t *testing.T) {
	seq := buildTestCell(t, 7)
	par := buildTestCell(t, 7)
	par.SetParallelism(4)

	src := makeConditions(96)
	for i := 0; i < src.Len(); i++ {
		assert.Equal(t, seq.Step(src.At(i)), par.Step(src.At(i)), "step %d", i)
	}
}

func TestCell_DuplicateUnitsIgnored(t *testing.T) {
	c, err := NewCell(1000, -12, 0)
	require.NoError(t, err)

	w1, err := component.NewWind(testWind, 0)
	require.NoError(t, err)
	w2, err := component.NewWind(testWind, 0)
	require.NoError(t, err)
	c.AddWind(w1)
	c.AddWind(w2)
	assert.Same(t, w1, c.Wind())
}

func TestCell_DHNBuildingSuppliedByCellCHP(t *testing.T) {
	cfg := testBuildingConfig()
	cfg.AtDHN = true
	b, err := NewBuilding(cfg, -12, rnd.New(1), 10)
	require.NoError(t, err)
	a, err := NewAgentWithCOC(model.PHH, 1, rnd.New(2))
	require.NoError(t, err)
	b.AddAgent(a)

	chp, err := thermal.NewCellCHP(thermal.CellCHPConfig{
		ThermalPowerW: 20000,
		CHPShare:      0.3,
		Storage: storage.Config{
			CapacityWh:          20000,
			ChargeEfficiency:    1,
			DischargeEfficiency: 1,
			InitialChargeWh:     10000,
		},
	}, nil, rnd.New(3), 10)
	require.NoError(t, err)

	c, err := NewCell(1000, -12, 10)
	require.NoError(t, err)
	c.AddBuilding(b)
	c.AddCHPSystem(chp)

	bal := c.Step(winterCondition(200, -5))
	assert.Greater(t, bal.LoadT, 0.0)
	assert.InDelta(t, bal.LoadT, bal.GenT, 1e-6, "district heating covers the building")
	assert.InDelta(t, bal.GenT, c.State().ContributionT, 1e-6)

	_, _, unmet := chp.History()
	assert.InDelta(t, 0, unmet[0], 1e-6)
}

func TestCell_Members(t *testing.T) {
	c := buildTestCell(t, 1)
	assert.Equal(t, Members{Buildings: 3, Agents: 6, SepBSLAgents: 1, SubCells: 1}, c.Members())
}

func TestCell_SingleHouseholdSelfSupplied(t *testing.T) {
	r := rnd.New(11)
	c, err := NewCell(1000, -12, 0)
	require.NoError(t, err)

	b, err := NewBuilding(BuildingConfig{
		MaxAgents:    1,
		Areas:        []float64{100},
		UValues:      []float64{1.0},
		DeltaU:       0.2,
		Infiltration: 0.3,
		HeatCapacity: 10000,
		Volume:       250,
	}, -12, rnd.Child(r), 0)
	require.NoError(t, err)
	assert.InDelta(t, (100*1.2+250*0.3*0.3378)*32, b.QHLN(), 1e-9)

	a, err := NewAgentWithCOC(model.PHH, 1.0, rnd.Child(r))
	require.NoError(t, err)
	b.AddAgent(a)
	c.AddBuilding(b)

	for i := 0; i < 4; i++ {
		bal := c.Step(model.BoundaryCondition{
			Time:               startTime.Add(time.Duration(i) * 15 * time.Minute),
			SLP:                model.SLP{200, 0, 0},
			HotWater:           0.5,
			AmbientTemperature: -5,
		})
		assert.GreaterOrEqual(t, bal.Electrical(), -240.0, "step %d", i)
		assert.LessOrEqual(t, bal.Electrical(), -160.0, "step %d", i)
		assert.Greater(t, bal.LoadT, 0.0, "step %d", i)
		assert.Equal(t, bal.LoadT, bal.GenT, "step %d", i)
		assert.Zero(t, bal.Thermal(), "step %d", i)
	}
}
