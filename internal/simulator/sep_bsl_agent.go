package simulator

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/hist"
	"cellsim/internal/model"
	"cellsim/internal/rnd"
)

// SepBSLAgent is a business connected to the cell directly rather than
// through a building. It has no thermal demand.
type SepBSLAgent struct {
	kind     model.AgentType
	coc      float64
	pvDemand float64
	pv       *component.PV
	r        *rand.Rand

	genE  *hist.Ring
	loadE *hist.Ring
}

func NewSepBSLAgent(kind model.AgentType, r *rand.Rand, histSize int) (*SepBSLAgent, error) {
	if kind == model.PHH {
		return nil, fmt.Errorf("%w: separate BSL agents must not be households", ErrInvalid)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown agent type %d", ErrInvalid, int(kind))
	}
	return &SepBSLAgent{
		kind:     kind,
		coc:      sampleCOC(kind, r),
		pvDemand: rnd.Uniform(r, 0.8, 1.2) * bslPVDemand(r),
		r:        r,
		genE:     hist.New(histSize),
		loadE:    hist.New(histSize),
	}, nil
}

// AddPV attaches a PV plant. An agent holds at most one.
func (a *SepBSLAgent) AddPV(pv *component.PV) {
	if a.pv != nil {
		log.Warn("separate BSL agent already has a PV plant, nothing is added")
		return
	}
	a.pv = pv
}

// AddDimensionedPV sizes a PV plant from the agent's demand statistics and
// the mean annual global irradiation eg (kWh/m²).
func (a *SepBSLAgent) AddDimensionedPV(eg float64, histSize int) error {
	pv, err := component.NewPV(eg, a.coc, a.pvDemand, a.r, histSize)
	if err != nil {
		return err
	}
	a.AddPV(pv)
	return nil
}

// Step returns the electrical balance for the given profile and global
// irradiance (W/m²). The load is not scaled by the consumption factor.
func (a *SepBSLAgent) Step(slp model.SLP, irradiance float64) model.Balance {
	var b model.Balance
	b.LoadE = slp.For(a.kind) * rnd.Jitter(a.r)
	if a.pv != nil {
		b.GenE = a.pv.Step(irradiance)
	}
	a.genE.Save(b.GenE)
	a.loadE.Save(b.LoadE)
	return b
}

func (a *SepBSLAgent) Type() model.AgentType { return a.kind }
func (a *SepBSLAgent) COC() float64          { return a.coc }
func (a *SepBSLAgent) PV() *component.PV     { return a.pv }

// History returns electrical generation and load, oldest first.
func (a *SepBSLAgent) History() (genE, loadE []float64) {
	return a.genE.Values(), a.loadE.Values()
}
