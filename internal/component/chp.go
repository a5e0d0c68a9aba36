package component

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"cellsim/internal/hist"
	"cellsim/internal/rnd"
)

// chpPowerRatio is the electrical to thermal power ratio of a CHP unit.
const chpPowerRatio = 0.5

// chpEfficiency is the total (electrical + thermal) fuel efficiency.
const chpEfficiency = 0.9

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// CHP is a combined heat and power unit.
type CHP struct {
	powT float64
	powE float64

	genE *hist.Ring
	genT *hist.Ring
}

func NewCHP(powT float64, histSize int) (*CHP, error) {
	if powT < 0 {
		return nil, fmt.Errorf("%w: CHP thermal power %.1f W is negative", ErrInvalid, powT)
	}
	return &CHP{
		powT: powT,
		powE: chpPowerRatio * powT,
		genE: hist.New(histSize),
		genT: hist.New(histSize),
	}, nil
}

// Step runs the unit at the given actuation (0 = off, 1 = rated power) and
// returns electrical and thermal generation and the fuel power used.
func (c *CHP) Step(actuation float64) (powE, powT, fuel float64) {
	a := clamp01(actuation)
	powE = a * c.powE
	powT = a * c.powT
	fuel = (powE + powT) / chpEfficiency
	c.genE.Save(powE)
	c.genT.Save(powT)
	return powE, powT, fuel
}

func (c *CHP) ThermalPower() float64    { return c.powT }
func (c *CHP) ElectricalPower() float64 { return c.powE }

// History returns electrical and thermal generation, oldest first.
func (c *CHP) History() (genE, genT []float64) {
	return c.genE.Values(), c.genT.Values()
}

// Boiler is a fuel fired peak load boiler.
type Boiler struct {
	powT       float64
	efficiency float64

	genT *hist.Ring
	fuel *hist.Ring
}

// NewBoiler creates a boiler with an efficiency drawn from U(0.8, 0.9).
func NewBoiler(powT float64, r *rand.Rand, histSize int) (*Boiler, error) {
	if powT < 0 {
		return nil, fmt.Errorf("%w: boiler thermal power %.1f W is negative", ErrInvalid, powT)
	}
	return &Boiler{
		powT:       powT,
		efficiency: rnd.Uniform(r, 0.8, 0.9),
		genT:       hist.New(histSize),
		fuel:       hist.New(histSize),
	}, nil
}

func (b *Boiler) SetEfficiency(eff float64) error {
	if eff <= 0 || eff > 1 {
		return fmt.Errorf("%w: boiler efficiency %.3f not in (0,1]", ErrInvalid, eff)
	}
	b.efficiency = eff
	return nil
}

// Step returns thermal generation and fuel power for the given actuation.
func (b *Boiler) Step(actuation float64) (powT, fuel float64) {
	powT = clamp01(actuation) * b.powT
	fuel = powT / b.efficiency
	b.genT.Save(powT)
	b.fuel.Save(fuel)
	return powT, fuel
}

func (b *Boiler) ThermalPower() float64 { return b.powT }
func (b *Boiler) Efficiency() float64   { return b.efficiency }

func (b *Boiler) History() (genT, fuel []float64) {
	return b.genT.Values(), b.fuel.Values()
}
