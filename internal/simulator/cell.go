package simulator

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/hist"
	"cellsim/internal/model"
	"cellsim/internal/solar"
	"cellsim/internal/thermal"
)

// Cell aggregates buildings, separate business agents, sub cells and its
// own generation into one grid segment.
type Cell struct {
	eg          float64 // mean annual global irradiation, kWh/m²
	tOutN       float64 // norm outside temperature, °C
	buildings   []*Building
	sepBSL      []*SepBSLAgent
	subCells    []*Cell
	pv          *component.PV
	wind        *component.Wind
	chp         *thermal.CellCHP
	parallelism int
	state       control.SystemState

	genE  *hist.Ring
	loadE *hist.Ring
	genT  *hist.Ring
	loadT *hist.Ring
}

func NewCell(eg, tOutN float64, histSize int) (*Cell, error) {
	if eg <= 0 {
		return nil, fmt.Errorf("%w: mean annual irradiation %.1f kWh/m² must be positive", ErrInvalid, eg)
	}
	return &Cell{
		eg:          eg,
		tOutN:       tOutN,
		parallelism: 1,
		genE:        hist.New(histSize),
		loadE:       hist.New(histSize),
		genT:        hist.New(histSize),
		loadT:       hist.New(histSize),
	}, nil
}

func (c *Cell) AddBuilding(b *Building)       { c.buildings = append(c.buildings, b) }
func (c *Cell) AddSepBSLAgent(a *SepBSLAgent) { c.sepBSL = append(c.sepBSL, a) }
func (c *Cell) AddSubCell(sub *Cell)          { c.subCells = append(c.subCells, sub) }

func (c *Cell) AddPV(pv *component.PV) {
	if c.pv != nil {
		log.Warn("cell already has a PV plant, nothing is added")
		return
	}
	c.pv = pv
}

func (c *Cell) AddWind(w *component.Wind) {
	if c.wind != nil {
		log.Warn("cell already has a wind turbine, nothing is added")
		return
	}
	c.wind = w
}

// AddCHPSystem attaches the district heating supply covering the thermal
// deficit of the cell's members.
func (c *Cell) AddCHPSystem(s *thermal.CellCHP) {
	if c.chp != nil {
		log.Warn("cell already has a CHP system, nothing is added")
		return
	}
	c.chp = s
}

// SetParallelism sets how many buildings and sub cells are stepped
// concurrently within one step. Values below 2 step them in order.
func (c *Cell) SetParallelism(n int) {
	if n < 1 {
		n = 1
	}
	c.parallelism = n
	for _, sub := range c.subCells {
		sub.SetParallelism(n)
	}
}

// stepMembers steps sub cells and buildings and returns their balances in
// index order, sub cells first.
func (c *Cell) stepMembers(bc model.BoundaryCondition, gains solar.Gains) []model.Balance {
	n := len(c.subCells) + len(c.buildings)
	out := make([]model.Balance, n)
	step := func(i int) {
		if i < len(c.subCells) {
			out[i] = c.subCells[i].Step(bc)
			return
		}
		out[i] = c.buildings[i-len(c.subCells)].Step(bc, gains)
	}

	if c.parallelism < 2 || n < 2 {
		for i := 0; i < n; i++ {
			step(i)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			step(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Step advances every member by one step and returns the cell balance.
func (c *Cell) Step(bc model.BoundaryCondition) model.Balance {
	gains := solar.FacadeGains(solar.Sky{
		Direct:    bc.DirectIrradiance,
		Diffuse:   bc.DiffuseIrradiance,
		Global:    bc.GlobalIrradiance,
		Elevation: bc.SolarElevation,
		Azimuth:   bc.SolarAzimuth,
	})

	var bal model.Balance
	// summed in index order so results do not depend on scheduling
	for _, m := range c.stepMembers(bc, gains) {
		bal = bal.Add(m)
	}
	for _, a := range c.sepBSL {
		bal = bal.Add(a.Step(bc.SLP, bc.GlobalIrradiance))
	}

	var ownE float64
	if c.pv != nil {
		ownE += c.pv.Step(bc.GlobalIrradiance)
	}
	if c.wind != nil {
		ownE += c.wind.Step(bc.WindSpeed)
	}
	bal.GenE += ownE

	var contT, fuel float64
	if c.chp != nil {
		demand := math.Max(bal.LoadT-bal.GenT, 0)
		amb := control.Ambient{
			GlobalIrradiance: bc.GlobalIrradiance,
			SolarElevation:   bc.SolarElevation,
			SolarAzimuth:     bc.SolarAzimuth,
			Temperature:      bc.AmbientTemperature,
		}
		var powE float64
		powE, contT, fuel = c.chp.Step(demand, c.state, amb)
		ownE += powE
		bal.GenE += powE
		bal.GenT += contT
	}

	c.state = control.SystemState{
		GenE:          bal.GenE,
		LoadE:         bal.LoadE,
		GenT:          bal.GenT,
		LoadT:         bal.LoadT,
		ContributionE: ownE,
		ContributionT: contT,
		Fuel:          fuel,
	}

	c.genE.Save(bal.GenE)
	c.loadE.Save(bal.LoadE)
	c.genT.Save(bal.GenT)
	c.loadT.Save(bal.LoadT)
	return bal
}

// State returns the gateway values of the last step. Cell controllers see
// this state during the following step.
func (c *Cell) State() control.SystemState { return c.state }

func (c *Cell) Eg() float64                     { return c.eg }
func (c *Cell) NormOutsideTemperature() float64 { return c.tOutN }

func (c *Cell) Buildings() []*Building       { return c.buildings }
func (c *Cell) SepBSLAgents() []*SepBSLAgent { return c.sepBSL }
func (c *Cell) SubCells() []*Cell            { return c.subCells }
func (c *Cell) PV() *component.PV            { return c.pv }
func (c *Cell) Wind() *component.Wind        { return c.wind }
func (c *Cell) CHPSystem() *thermal.CellCHP  { return c.chp }

// History returns the recorded cell balances, oldest first.
func (c *Cell) History() (genE, loadE, genT, loadT []float64) {
	return c.genE.Values(), c.loadE.Values(), c.genT.Values(), c.loadT.Values()
}

// Members counts the entities of a cell tree.
type Members struct {
	Buildings    int `json:"buildings"`
	Agents       int `json:"agents"`
	SepBSLAgents int `json:"sep_bsl_agents"`
	SubCells     int `json:"sub_cells"`
}

// Members counts the entities of c and all its sub cells.
func (c *Cell) Members() Members {
	m := Members{
		Buildings:    len(c.buildings),
		SepBSLAgents: len(c.sepBSL),
		SubCells:     len(c.subCells),
	}
	for _, b := range c.buildings {
		m.Agents += len(b.agents)
	}
	for _, sub := range c.subCells {
		sm := sub.Members()
		m.Buildings += sm.Buildings
		m.Agents += sm.Agents
		m.SepBSLAgents += sm.SepBSLAgents
		m.SubCells += sm.SubCells
	}
	return m
}
