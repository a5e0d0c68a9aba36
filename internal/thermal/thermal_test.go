package thermal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/model"
	"cellsim/internal/rnd"
	"cellsim/internal/storage"
)

var cellStorage = storage.Config{
	CapacityWh:          20000,
	ChargeEfficiency:    0.95,
	DischargeEfficiency: 0.95,
	SelfDischarge:       0.01,
}

func TestModeSwitch_Hysteresis(t *testing.T) {
	s := modeSwitch{mode: Intermediate, hyst: 2}
	const lim = 15.

	// inside the band
	assert.Equal(t, Intermediate, s.update(lim, 13))
	// below lim - 1.2 hyst, back only above lim - 0.8 hyst
	assert.Equal(t, Winter, s.update(lim, 12.5))
	assert.Equal(t, Winter, s.update(lim, 13.3))
	assert.Equal(t, Intermediate, s.update(lim, 13.7))
	assert.Equal(t, Intermediate, s.update(lim, 17.3))
	assert.Equal(t, Summer, s.update(lim, 17.5))
	assert.Equal(t, Summer, s.update(lim, 16.7))
	assert.Equal(t, Intermediate, s.update(lim, 16.5))
	assert.Equal(t, "summer", Summer.String())
}

func TestNewCellCHP_Validation(t *testing.T) {
	r := rnd.New(1)
	_, err := NewCellCHP(CellCHPConfig{ThermalPowerW: 0, CHPShare: 0.5, Storage: cellStorage}, nil, r, 0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = NewCellCHP(CellCHPConfig{ThermalPowerW: 1000, CHPShare: 1.5, Storage: cellStorage}, nil, r, 0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = NewCellCHP(CellCHPConfig{ThermalPowerW: 1000, CHPShare: 0.5}, nil, r, 0)
	assert.ErrorIs(t, err, storage.ErrInvalid)
}

func TestCellCHP_CoversDemandFromEmptyStorage(t *testing.T) {
	s, err := NewCellCHP(CellCHPConfig{ThermalPowerW: 10000, CHPShare: 0.6, Storage: cellStorage}, nil, rnd.New(1), 4)
	require.NoError(t, err)

	powE, genT, fuel := s.Step(3000, control.SystemState{}, control.Ambient{})

	// empty storage: both units run
	assert.Equal(t, control.Actuation{CHP: 1, Boiler: 1}, s.LastActuation())
	assert.InDelta(t, 3000, powE, 1e-9) // 0.5 * 6 kW
	assert.InDelta(t, 3000, genT, 1e-6)
	assert.Greater(t, fuel, 10000.0)
	assert.Greater(t, s.Storage().Charge(), 0.0)

	_, _, unmet := s.History()
	require.Len(t, unmet, 1)
	assert.InDelta(t, 0, unmet[0], 1e-6)
}

func TestCellCHP_RecordsShortfall(t *testing.T) {
	s, err := NewCellCHP(CellCHPConfig{ThermalPowerW: 1000, CHPShare: 1, Storage: cellStorage}, nil, rnd.New(1), 4)
	require.NoError(t, err)

	_, genT, _ := s.Step(5000, control.SystemState{}, control.Ambient{})
	assert.InDelta(t, 1000, genT, 1e-9)

	_, _, unmet := s.History()
	require.Len(t, unmet, 1)
	assert.InDelta(t, 4000, unmet[0], 1e-9)
}

type countingController struct {
	calls     int
	fractions []float64
}

func (c *countingController) Decide(f float64, _ control.SystemState, _ control.Ambient) control.Actuation {
	c.calls++
	c.fractions = append(c.fractions, f)
	return control.Actuation{CHP: 1}
}

func TestCellCHP_CallsControllerOncePerStep(t *testing.T) {
	ctrl := &countingController{}
	s, err := NewCellCHP(CellCHPConfig{ThermalPowerW: 4000, CHPShare: 0.5, Storage: cellStorage}, ctrl, rnd.New(1), 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.Step(0, control.SystemState{}, control.Ambient{})
	}
	assert.Equal(t, 5, ctrl.calls)
	// the controller sees the fraction before the storage step
	assert.InDelta(t, 0, ctrl.fractions[0], 1e-12)
	assert.Greater(t, ctrl.fractions[4], ctrl.fractions[1])

	s.SetController(nil)
	s.Step(0, control.SystemState{}, control.Ambient{})
	assert.Equal(t, 5, ctrl.calls)
}

func TestNewBuildingCHP_Validation(t *testing.T) {
	_, err := NewBuildingCHP(-1, 2, rnd.New(1), 0)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = NewBuildingCHP(10000, -1, rnd.New(1), 0)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuildingCHP_EnergyBalance(t *testing.T) {
	s, err := NewBuildingCHP(12000, 4, rnd.New(7), 400)
	require.NoError(t, err)

	r := rnd.New(8)
	var delivered float64
	for i := 0; i < 400; i++ {
		demand := rnd.Uniform(r, 0, 8000)
		hw := rnd.Uniform(r, 0, 1500)
		powE, genT := s.Step(demand, hw, 0, 15, 2)
		assert.GreaterOrEqual(t, powE, 0.0)
		delivered += genT * model.StepHours
	}
	assert.Equal(t, Winter, s.Mode())

	_, produced := s.History()
	var total float64
	for _, p := range produced {
		total += p * model.StepHours
	}
	stored := s.Storage().Charge() + s.HotWaterStorage().Charge()
	assert.InDelta(t, total-stored, delivered, 1e-6*total)
}

func TestBuildingCHP_SummerOnlyHeatsWater(t *testing.T) {
	s, err := NewBuildingCHP(12000, 4, rnd.New(7), 50)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s.Step(0, 500, 20, 15, 25)
	}
	assert.Equal(t, Summer, s.Mode())
	boilerT, _ := s.Boiler().History()
	for _, p := range boilerT {
		assert.Zero(t, p)
	}
	assert.Greater(t, s.HotWaterStorage().RelativeCharge(), 0.0)
}

func constantYear(temp float64) []float64 {
	ref := make([]float64, 8760)
	for i := range ref {
		ref[i] = temp
	}
	return ref
}

func TestSizeHeatpump_ConstantYear(t *testing.T) {
	d := HeatpumpDesign{SeasonalPerformanceFactor: 3.0, SupplyTemperature: 35, ReferenceTemperatures: constantYear(0)}

	sz, err := SizeHeatpump(10000, -12, 15, d)
	require.NoError(t, err)

	p0 := 10000 * blockingFactor / component.COP(10000, -12, 35)
	want := 10000 * 15. / 27 / component.PowerFactor(p0, 0, 35) * blockingFactor
	assert.InDelta(t, want, sz.PowerW, 1e-6)
	assert.Equal(t, 1, sz.Iterations)
	assert.InDelta(t, 0, sz.MinWorkingTemperature, 1e-12)
	assert.InDelta(t, component.COP(p0, 0, 35), sz.MeanCOP, 1e-9)
}

func TestSizeHeatpump_RaisesMinimumTemperature(t *testing.T) {
	// a cold quarter pulls the mean COP below the target
	ref := constantYear(5)
	for i := 0; i < 100*24; i++ {
		ref[i] = -15
	}
	d := HeatpumpDesign{SeasonalPerformanceFactor: 3.5, SupplyTemperature: 35, ReferenceTemperatures: ref}

	sz, err := SizeHeatpump(10000, -12, 15, d)
	require.NoError(t, err)
	assert.Greater(t, sz.MinWorkingTemperature, -15.0)
	assert.GreaterOrEqual(t, sz.MeanCOP, 3.5)
	assert.Greater(t, sz.Iterations, 1)
	assert.GreaterOrEqual(t, sz.PowerW, 1000.0)
}

func TestSizeHeatpump_Infeasible(t *testing.T) {
	d := HeatpumpDesign{SeasonalPerformanceFactor: 3.0, SupplyTemperature: 35, ReferenceTemperatures: constantYear(0)}

	_, err := SizeHeatpump(4000, -12, 15, d)
	assert.ErrorIs(t, err, ErrInfeasible)
	_, err = SizeHeatpump(90000, -12, 15, d)
	assert.ErrorIs(t, err, ErrInfeasible)

	d.SeasonalPerformanceFactor = 3.5 // unreachable at a constant 0 °C
	_, err = SizeHeatpump(10000, -12, 15, d)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSizeHeatpump_InvalidDesign(t *testing.T) {
	d := HeatpumpDesign{SeasonalPerformanceFactor: 3.0, SupplyTemperature: 35, ReferenceTemperatures: make([]float64, 30)}
	_, err := SizeHeatpump(10000, -12, 15, d)
	assert.ErrorIs(t, err, ErrInvalid)

	d.ReferenceTemperatures = constantYear(0)
	d.SupplyTemperature = 18
	_, err = SizeHeatpump(10000, -12, 15, d)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuildingHeatpump_ConsumesAndDelivers(t *testing.T) {
	d := HeatpumpDesign{SeasonalPerformanceFactor: 3.0, SupplyTemperature: 35, ReferenceTemperatures: constantYear(0)}
	s, err := NewBuildingHeatpump(10000, -12, 15, d, rnd.New(3), 200)
	require.NoError(t, err)

	var delivered float64
	for i := 0; i < 200; i++ {
		powE, genT := s.Step(4000, 300, 0, 15, 0)
		assert.LessOrEqual(t, powE, 0.0)
		delivered += genT * model.StepHours
	}
	assert.Equal(t, Winter, s.Mode())

	_, produced := s.History()
	var total float64
	for _, p := range produced {
		total += p * model.StepHours
	}
	assert.InDelta(t, total-s.Storage().Charge(), delivered, 1e-6*total)
	// steady state meets the load on average
	assert.InDelta(t, 4300*200*model.StepHours, delivered, 0.1*4300*200*model.StepHours)
}

func TestHourlyMeans(t *testing.T) {
	got := HourlyMeans([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 4)
	assert.Equal(t, []float64{2.5, 6.5}, got)
}
