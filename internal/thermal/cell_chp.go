package thermal

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/hist"
	"cellsim/internal/storage"
)

// CellCHPConfig describes the district heating supply of a cell.
type CellCHPConfig struct {
	ThermalPowerW float64        `yaml:"thermal_power_w"`
	CHPShare      float64        `yaml:"chp_share"` // CHP part of ThermalPowerW
	Storage       storage.Config `yaml:"storage"`   // MaxPowerW is set to ThermalPowerW
}

// CellCHP feeds a district heating network from a CHP unit and a peak
// boiler through a buffer storage. Dispatch is delegated to a controller.
type CellCHP struct {
	chp     *component.CHP
	boiler  *component.Boiler
	storage *storage.Storage
	ctrl    control.Controller
	last    control.Actuation

	genE  *hist.Ring
	genT  *hist.Ring
	unmet *hist.Ring
}

// NewCellCHP builds the system. A nil ctrl selects the rule based default.
func NewCellCHP(cfg CellCHPConfig, ctrl control.Controller, r *rand.Rand, histSize int) (*CellCHP, error) {
	if cfg.ThermalPowerW <= 0 {
		return nil, fmt.Errorf("%w: thermal power %.1f W must be positive", ErrInvalid, cfg.ThermalPowerW)
	}
	if cfg.CHPShare < 0 || cfg.CHPShare > 1 {
		return nil, fmt.Errorf("%w: CHP share %.3f not in [0,1]", ErrInvalid, cfg.CHPShare)
	}

	chp, err := component.NewCHP(cfg.CHPShare*cfg.ThermalPowerW, histSize)
	if err != nil {
		return nil, err
	}
	boiler, err := component.NewBoiler((1-cfg.CHPShare)*cfg.ThermalPowerW, r, histSize)
	if err != nil {
		return nil, err
	}
	sc := cfg.Storage
	sc.MaxPowerW = cfg.ThermalPowerW
	st, err := storage.New(sc, histSize)
	if err != nil {
		return nil, fmt.Errorf("cell CHP storage: %w", err)
	}

	s := &CellCHP{
		chp:     chp,
		boiler:  boiler,
		storage: st,
		genE:    hist.New(histSize),
		genT:    hist.New(histSize),
		unmet:   hist.New(histSize),
	}
	s.SetController(ctrl)
	return s, nil
}

// SetController replaces the dispatch controller; nil restores the rule
// based default.
func (s *CellCHP) SetController(ctrl control.Controller) {
	if ctrl == nil {
		ctrl, _ = control.NewRuleBased(control.DefaultThresholds)
	}
	s.ctrl = ctrl
}

// Step supplies demand (W) for one step and returns the electrical
// generation, the thermal power delivered and the fuel power used. Demand
// the system cannot meet is recorded in Unmet, not passed back.
func (s *CellCHP) Step(demand float64, state control.SystemState, amb control.Ambient) (powE, genT, fuel float64) {
	s.last = s.ctrl.Decide(s.storage.RelativeCharge(), state, amb)

	powE, chpT, chpFuel := s.chp.Step(s.last.CHP)
	boilerT, boilerFuel := s.boiler.Step(s.last.Boiler)
	powT := chpT + boilerT

	accepted, _ := s.storage.Step(powT - demand)
	genT = powT - accepted

	s.genE.Save(powE)
	s.genT.Save(powT)
	s.unmet.Save(math.Max(demand-genT, 0))
	return powE, genT, chpFuel + boilerFuel
}

// LastActuation returns the decision of the most recent step.
func (s *CellCHP) LastActuation() control.Actuation { return s.last }

func (s *CellCHP) Storage() *storage.Storage { return s.storage }
func (s *CellCHP) CHP() *component.CHP       { return s.chp }
func (s *CellCHP) Boiler() *component.Boiler { return s.boiler }

// History returns electrical and thermal generation and unmet demand.
func (s *CellCHP) History() (genE, genT, unmet []float64) {
	return s.genE.Values(), s.genT.Values(), s.unmet.Values()
}
