package simulator

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"cellsim/internal/model"
	"cellsim/internal/rnd"
)

// Demand statistics of private households and businesses.
const (
	phhCOCAlpha = 3.944677863332723
	phhCOCBeta  = 2.638609989052125
	phhCOCScale = 5.

	bslCOCShape = 1.399147113755027
	bslCOCScale = 1.876519590091970

	pvDemandD1     = 7.025235971695065
	pvDemandD2     = 2205.596792511838
	pvDemandScale  = 0.299704041191481
	pvDemandOffset = 0.1

	// hot water demand line over the day profile factor (W)
	hotWaterSlope  = 684.7
	hotWaterOffset = 314.4

	cocDraws = 10
)

// Agent is a household or business consuming electricity and hot water.
type Agent struct {
	kind     model.AgentType
	coc      float64 // consumption factor relative to the standard profile
	pvDemand float64 // PV area demand factor
	r        *rand.Rand
}

// NewAgent creates an agent with consumption and PV demand factors drawn
// from the statistics of its class.
func NewAgent(kind model.AgentType, r *rand.Rand) (*Agent, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown agent type %d", ErrInvalid, int(kind))
	}
	a := &Agent{kind: kind, r: r}
	a.coc = sampleCOC(kind, r)
	a.pvDemand = samplePVDemand(kind, r)
	return a, nil
}

// NewAgentWithCOC creates an agent with a fixed consumption factor.
func NewAgentWithCOC(kind model.AgentType, coc float64, r *rand.Rand) (*Agent, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown agent type %d", ErrInvalid, int(kind))
	}
	if coc < 1 {
		return nil, fmt.Errorf("%w: COC %.3f must be at least 1", ErrInvalid, coc)
	}
	return &Agent{kind: kind, coc: coc, pvDemand: samplePVDemand(kind, r), r: r}, nil
}

// sampleCOC redraws up to cocDraws times until the factor reaches 1 and
// floors it at 1 otherwise.
func sampleCOC(kind model.AgentType, r *rand.Rand) float64 {
	var draw func() float64
	if kind == model.PHH {
		d := distuv.Beta{Alpha: phhCOCAlpha, Beta: phhCOCBeta, Src: rnd.Source(r)}
		draw = func() float64 { return d.Rand() * phhCOCScale }
	} else {
		d := distuv.Gamma{Alpha: bslCOCShape, Beta: 1 / bslCOCScale, Src: rnd.Source(r)}
		draw = d.Rand
	}

	var coc float64
	for i := 0; i < cocDraws; i++ {
		if coc = draw(); coc >= 1 {
			return coc
		}
	}
	return 1
}

func samplePVDemand(kind model.AgentType, r *rand.Rand) float64 {
	f := rnd.Uniform(r, 0.8, 1.2)
	if kind == model.PHH && rnd.Uniform(r, 0, 1) < 0.7 {
		return f * distuv.Normal{Mu: 0.3, Sigma: 0.025, Src: rnd.Source(r)}.Rand()
	}
	return f * bslPVDemand(r)
}

func bslPVDemand(r *rand.Rand) float64 {
	return distuv.F{D1: pvDemandD1, D2: pvDemandD2, Src: rnd.Source(r)}.Rand()*pvDemandScale + pvDemandOffset
}

// Step returns the electrical load and hot water demand (W) of one step.
func (a *Agent) Step(slp model.SLP, hotWater float64) (loadE, loadT float64) {
	loadE = math.Max(slp.For(a.kind)*a.coc*rnd.Jitter(a.r), 0)
	loadT = math.Max((hotWaterSlope*hotWater+hotWaterOffset)*rnd.Jitter(a.r), 0)
	return loadE, loadT
}

func (a *Agent) Type() model.AgentType { return a.kind }
func (a *Agent) COC() float64          { return a.coc }
func (a *Agent) PVDemand() float64     { return a.pvDemand }
