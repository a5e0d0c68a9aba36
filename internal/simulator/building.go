package simulator

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/hist"
	"cellsim/internal/model"
	"cellsim/internal/solar"
	"cellsim/internal/thermal"
)

const (
	nominalTemperature = 20. // °C
	airHeatCapacity    = 0.3378
	initialHeatLimit   = 15. // °C, also the start of the mean outside temperature
)

// BuildingConfig holds the geometry and physics of a building.
type BuildingConfig struct {
	MaxAgents    int       `yaml:"max_agents"`
	LivingArea   float64   `yaml:"living_area"`   // m²
	Areas        []float64 `yaml:"areas"`         // envelope surfaces, m²; Areas[1] are windows
	UValues      []float64 `yaml:"u_values"`      // W/(m² K), one per area
	DeltaU       float64   `yaml:"delta_u"`       // thermal bridge surcharge, W/(m² K)
	Infiltration float64   `yaml:"infiltration"`  // 1/h
	Ventilation  float64   `yaml:"ventilation"`   // 1/h
	HeatCapacity float64   `yaml:"heat_capacity"` // effective, Wh/K
	SolarFactor  float64   `yaml:"solar_factor"`  // window g-value
	Volume       float64   `yaml:"volume"`        // m³
	AtDHN        bool      `yaml:"at_dhn"`
}

// Validate checks the parameter domains.
func (c BuildingConfig) Validate() error {
	switch {
	case c.MaxAgents <= 0:
		return fmt.Errorf("%w: max agents %d must be positive", ErrInvalid, c.MaxAgents)
	case c.LivingArea < 0:
		return fmt.Errorf("%w: living area %.1f m² is negative", ErrInvalid, c.LivingArea)
	case len(c.Areas) != len(c.UValues):
		return fmt.Errorf("%w: %d areas but %d U-values", ErrInvalid, len(c.Areas), len(c.UValues))
	case c.DeltaU < 0:
		return fmt.Errorf("%w: U-value offset %.3f is negative", ErrInvalid, c.DeltaU)
	case c.Infiltration < 0 || c.Ventilation < 0:
		return fmt.Errorf("%w: air exchange rates must not be negative", ErrInvalid)
	case c.HeatCapacity <= 0:
		return fmt.Errorf("%w: heat capacity %.1f Wh/K must be positive", ErrInvalid, c.HeatCapacity)
	case c.SolarFactor < 0 || c.SolarFactor > 1:
		return fmt.Errorf("%w: solar factor %.3f not in [0,1]", ErrInvalid, c.SolarFactor)
	case c.Volume < 0:
		return fmt.Errorf("%w: volume %.1f m³ is negative", ErrInvalid, c.Volume)
	}
	for i := range c.Areas {
		if c.Areas[i] < 0 || c.UValues[i] < 0 {
			return fmt.Errorf("%w: area %d (%.1f m², U %.2f) is negative", ErrInvalid, i, c.Areas[i], c.UValues[i])
		}
	}
	return nil
}

// Building is a thermal zone housing agents. Its indoor temperature is a
// single lumped capacitance kept at 20 °C by an ideal controller.
type Building struct {
	cfg      BuildingConfig
	uTrans   float64 // W/K
	qHLN     float64 // W
	heatLim  float64 // °C
	meanTOut float64 // °C
	temp     float64 // °C
	tOutN    float64
	agents   []*Agent
	pv       *component.PV
	heating  thermal.HeatingSystem
	r        *rand.Rand

	genE       *hist.Ring
	loadE      *hist.Ring
	genT       *hist.Ring
	loadT      *hist.Ring
	tHist      *hist.Ring
	spaceHeatT *hist.Ring
}

// NewBuilding validates cfg and computes the norm heating load for the
// norm outside temperature tOutN.
func NewBuilding(cfg BuildingConfig, tOutN float64, r *rand.Rand, histSize int) (*Building, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Building{
		cfg:      cfg,
		heatLim:  initialHeatLimit,
		meanTOut: initialHeatLimit,
		temp:     nominalTemperature,
		tOutN:    tOutN,
		r:        r,

		genE:       hist.New(histSize),
		loadE:      hist.New(histSize),
		genT:       hist.New(histSize),
		loadT:      hist.New(histSize),
		tHist:      hist.New(histSize),
		spaceHeatT: hist.New(histSize),
	}
	b.uTrans, b.qHLN = NormHeatingLoad(cfg, tOutN)
	if cfg.LivingArea > 0 {
		b.heatLim = math.Max(9.5, math.Min(17, 0.05*b.qHLN/cfg.LivingArea+10.34))
	}
	return b, nil
}

// NormHeatingLoad returns the heat transfer coefficient (W/K) and the norm
// heating load (W) of a building after the simplified EN 12831 method with
// 20 °C room temperature.
func NormHeatingLoad(cfg BuildingConfig, tOutN float64) (uTrans, qHLN float64) {
	for i, a := range cfg.Areas {
		uTrans += a * (cfg.UValues[i] + cfg.DeltaU)
	}
	uTrans += cfg.Volume * airHeatCapacity * (cfg.Infiltration + cfg.Ventilation)
	return uTrans, uTrans * (nominalTemperature - tOutN)
}

// AddAgent moves a into the building unless it is full.
func (b *Building) AddAgent(a *Agent) {
	if len(b.agents) >= b.cfg.MaxAgents {
		log.Warnf("building reached its maximum of %d agents, nothing is added", b.cfg.MaxAgents)
		return
	}
	b.agents = append(b.agents, a)
}

// ReplaceAgent swaps the agent at position pos.
func (b *Building) ReplaceAgent(pos int, a *Agent) error {
	if pos < 0 || pos >= len(b.agents) {
		return fmt.Errorf("%w: agent position %d not in [0, %d)", ErrInvalid, pos, len(b.agents))
	}
	b.agents[pos] = a
	return nil
}

func (b *Building) AddPV(pv *component.PV) {
	if b.pv != nil {
		log.Warn("building already has a PV plant, nothing is added")
		return
	}
	b.pv = pv
}

// AddDimensionedPV sizes a PV plant from the agents' consumption and mean
// PV demand factors.
func (b *Building) AddDimensionedPV(eg float64, histSize int) error {
	var cocSum, demand float64
	for _, a := range b.agents {
		cocSum += a.COC()
		demand += a.PVDemand()
	}
	if len(b.agents) > 0 {
		demand /= float64(len(b.agents))
	}
	pv, err := component.NewPV(eg, cocSum, demand, b.r, histSize)
	if err != nil {
		return err
	}
	b.AddPV(pv)
	return nil
}

// AddHeatingSystem attaches a local heat supply. Buildings at the district
// heating network and buildings with a system already keep what they have.
func (b *Building) AddHeatingSystem(hs thermal.HeatingSystem) {
	switch {
	case b.cfg.AtDHN:
		log.Warn("building is supplied by the district heating network, no heating system is added")
	case b.heating != nil:
		log.Warn("building already has a heating system, nothing is added")
	default:
		b.heating = hs
	}
}

func (b *Building) AddCHPSystem(s *thermal.BuildingCHP)           { b.AddHeatingSystem(s) }
func (b *Building) AddHeatpumpSystem(s *thermal.BuildingHeatpump) { b.AddHeatingSystem(s) }

// AddDimensionedCHP designs a CHP system for the building's norm heating
// load with the hot water characteristic of MaxAgents dwellings.
func (b *Building) AddDimensionedCHP(histSize int) error {
	s, err := thermal.NewBuildingCHP(b.qHLN, float64(b.cfg.MaxAgents), b.r, histSize)
	if err != nil {
		return err
	}
	b.AddCHPSystem(s)
	return nil
}

// AddDimensionedHeatpump designs a heatpump system. Errors wrapping
// thermal.ErrInfeasible leave the building self-supplied.
func (b *Building) AddDimensionedHeatpump(d thermal.HeatpumpDesign, histSize int) error {
	s, err := thermal.NewBuildingHeatpump(b.qHLN, b.tOutN, b.heatLim, d, b.r, histSize)
	if err != nil {
		return err
	}
	b.AddHeatpumpSystem(s)
	return nil
}

// solarGains returns the gains through the windows, spread evenly over
// the four facades.
func (b *Building) solarGains(g solar.Gains) float64 {
	if len(b.cfg.Areas) < 2 {
		return 0
	}
	return b.cfg.SolarFactor * g.Sum() * b.cfg.Areas[1] / 4
}

// heatRequest is a bang-bang controller returning the power needed to
// cover losses and lift the zone back to its nominal temperature.
func (b *Building) heatRequest(gains, tOut float64) float64 {
	var loss float64
	if b.temp >= tOut {
		loss = b.uTrans * (b.temp - tOut)
	}
	heatUp := b.cfg.HeatCapacity * (nominalTemperature - b.temp) / model.StepHours
	return math.Max(loss+heatUp-gains, 0)
}

// updateTemperature integrates the zone temperature implicitly over one
// step with heat input qIn and returns the resulting heat loss.
func (b *Building) updateTemperature(qIn, tOut float64) float64 {
	cdt := b.cfg.HeatCapacity / model.StepHours
	b.temp = (qIn + b.uTrans*tOut + cdt*b.temp) / (cdt + b.uTrans)
	b.tHist.Save(b.temp)
	return math.Max(b.uTrans*(b.temp-tOut), 0)
}

// Step advances the building by one step. gains are the facade specific
// solar gains of the cell.
func (b *Building) Step(bc model.BoundaryCondition, gains solar.Gains) model.Balance {
	tOut := bc.AmbientTemperature
	b.meanTOut = (model.StepsPerDay-1)/float64(model.StepsPerDay)*b.meanTOut + tOut/model.StepsPerDay

	var bal model.Balance
	var hotWater float64
	for _, a := range b.agents {
		e, t := a.Step(bc.SLP, bc.HotWater)
		bal.LoadE += e
		hotWater += t
	}
	// electricity used inside ends up as heat
	internal := bal.LoadE + b.solarGains(gains)

	if b.pv != nil {
		bal.GenE += b.pv.Step(bc.GlobalIrradiance)
	}

	request := b.heatRequest(internal, tOut)
	var genT float64
	if b.heating != nil {
		var powE float64
		powE, genT = b.heating.Step(math.Max(request-b.heating.Losses(), 0), hotWater, tOut, b.heatLim, b.meanTOut)
		if powE < 0 {
			bal.LoadE -= powE
		} else {
			bal.GenE += powE
		}
	} else {
		genT = request + hotWater
	}

	b.spaceHeatT.Save(b.updateTemperature(internal+genT-hotWater, tOut))

	switch {
	case b.cfg.AtDHN:
		bal.LoadT = genT
	default:
		bal.GenT = genT
		bal.LoadT = request + hotWater
	}

	b.genE.Save(bal.GenE)
	b.loadE.Save(bal.LoadE)
	b.genT.Save(bal.GenT)
	b.loadT.Save(bal.LoadT)
	return bal
}

func (b *Building) QHLN() float64 { return b.qHLN }

// HeatTransferCoefficient returns the transmission and ventilation loss
// coefficient in W/K.
func (b *Building) HeatTransferCoefficient() float64 { return b.uTrans }

func (b *Building) HeatLimitTemperature() float64   { return b.heatLim }
func (b *Building) MeanOutsideTemperature() float64 { return b.meanTOut }
func (b *Building) Temperature() float64            { return b.temp }

func (b *Building) Agents() []*Agent                     { return b.agents }
func (b *Building) PV() *component.PV                    { return b.pv }
func (b *Building) HeatingSystem() thermal.HeatingSystem { return b.heating }
func (b *Building) Config() BuildingConfig               { return b.cfg }

// BuildingHistory holds the recorded series of a building, oldest first.
type BuildingHistory struct {
	GenE, LoadE, GenT, LoadT []float64
	Temperature              []float64
	SpaceHeatingDemand       []float64
}

func (b *Building) History() BuildingHistory {
	return BuildingHistory{
		GenE:               b.genE.Values(),
		LoadE:              b.loadE.Values(),
		GenT:               b.genT.Values(),
		LoadT:              b.loadT.Values(),
		Temperature:        b.tHist.Values(),
		SpaceHeatingDemand: b.spaceHeatT.Values(),
	}
}
