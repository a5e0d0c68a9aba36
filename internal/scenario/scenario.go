// Package scenario builds cell trees from scenario configurations.
package scenario

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/config"
	"cellsim/internal/control"
	"cellsim/internal/model"
	"cellsim/internal/rnd"
	"cellsim/internal/simulator"
	"cellsim/internal/thermal"
)

// Builder constructs the cell tree of a scenario. Every Build with a
// non-zero seed yields an identical tree.
type Builder struct {
	cfg       *config.Config
	seed      uint64
	reference []float64 // hourly ambient temperatures of whole days
}

// New prepares a builder. ambient is the ambient temperature series at
// step resolution; its hourly means serve as heatpump reference year.
// A scenario without seed gets a time based one here, so repeated builds
// still agree.
func New(cfg *config.Config, ambient []float64) *Builder {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		log.Infof("scenario %q has no seed, using %d", cfg.Name, seed)
	}
	stepsPerHour := int(1 / model.StepHours)
	hourly := thermal.HourlyMeans(ambient, stepsPerHour)
	days := len(hourly) / 24
	return &Builder{cfg: cfg, seed: seed, reference: hourly[:days*24]}
}

// Seed returns the seed every build starts from.
func (b *Builder) Seed() uint64 { return b.seed }

// Build creates a new cell tree.
func (b *Builder) Build() (*simulator.Cell, error) {
	c, err := b.buildCell(b.cfg.Cell, "cell", rnd.New(b.seed))
	if err != nil {
		return nil, err
	}
	c.SetParallelism(b.cfg.Parallelism)

	m := c.Members()
	log.Infof("built scenario %q: %d buildings, %d agents, %d separate businesses, %d sub cells",
		b.cfg.Name, m.Buildings, m.Agents, m.SepBSLAgents, m.SubCells)
	return c, nil
}

func (b *Builder) buildCell(cc config.CellConfig, path string, r *rand.Rand) (*simulator.Cell, error) {
	hist := b.cfg.HistorySize
	c, err := simulator.NewCell(cc.Eg, cc.TOutN, hist)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for i, sc := range cc.SubCells {
		sub, err := b.buildCell(sc, fmt.Sprintf("%s.sub_cells[%d]", path, i), rnd.Child(r))
		if err != nil {
			return nil, err
		}
		c.AddSubCell(sub)
	}

	var dhn int
	for i, bc := range cc.Buildings {
		for k := 0; k < bc.Count; k++ {
			bp := fmt.Sprintf("%s.buildings[%d]#%d", path, i, k)
			bld, err := b.buildBuilding(bc, cc, bp, rnd.Child(r))
			if err != nil {
				return nil, err
			}
			c.AddBuilding(bld)
			if bc.AtDHN {
				dhn++
			}
		}
	}

	for i, ac := range cc.SepBSLAgents {
		kind, err := model.ParseAgentType(ac.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.sep_bsl_agents[%d]: %w", path, i, err)
		}
		for k := 0; k < ac.Count; k++ {
			a, err := simulator.NewSepBSLAgent(kind, rnd.Child(r), hist)
			if err != nil {
				return nil, fmt.Errorf("%s.sep_bsl_agents[%d]: %w", path, i, err)
			}
			if ac.PV {
				if err := a.AddDimensionedPV(cc.Eg, hist); err != nil {
					return nil, fmt.Errorf("%s.sep_bsl_agents[%d]: %w", path, i, err)
				}
			}
			c.AddSepBSLAgent(a)
		}
	}

	if cc.PV != nil {
		pv, err := component.NewPVWithArea(cc.PV.Area, hist)
		if err != nil {
			return nil, fmt.Errorf("%s.pv: %w", path, err)
		}
		c.AddPV(pv)
	}
	if cc.Wind != nil {
		w, err := component.NewWind(*cc.Wind, hist)
		if err != nil {
			return nil, fmt.Errorf("%s.wind: %w", path, err)
		}
		c.AddWind(w)
	}

	if cc.CHP != nil {
		ctrl, err := control.New(cc.CHP.Controller.Kind, cc.CHP.Controller.Options())
		if err != nil {
			return nil, fmt.Errorf("%s.chp.controller: %w", path, err)
		}
		s, err := thermal.NewCellCHP(cc.CHP.CellCHPConfig, ctrl, rnd.Child(r), hist)
		if err != nil {
			return nil, fmt.Errorf("%s.chp: %w", path, err)
		}
		c.AddCHPSystem(s)
	} else if dhn > 0 {
		log.Warnf("%s: %d buildings at the district heating network but no CHP system, their heat demand stays uncovered", path, dhn)
	}
	return c, nil
}

func (b *Builder) buildBuilding(bc config.BuildingConfig, cc config.CellConfig, path string, r *rand.Rand) (*simulator.Building, error) {
	hist := b.cfg.HistorySize
	bld, err := simulator.NewBuilding(bc.BuildingConfig, cc.TOutN, rnd.Child(r), hist)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for j, ac := range bc.Agents {
		kind, err := model.ParseAgentType(ac.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.agents[%d]: %w", path, j, err)
		}
		for k := 0; k < ac.Count; k++ {
			var a *simulator.Agent
			if ac.COC > 0 {
				a, err = simulator.NewAgentWithCOC(kind, ac.COC, rnd.Child(r))
			} else {
				a, err = simulator.NewAgent(kind, rnd.Child(r))
			}
			if err != nil {
				return nil, fmt.Errorf("%s.agents[%d]: %w", path, j, err)
			}
			bld.AddAgent(a)
		}
	}

	if bc.PV {
		if err := bld.AddDimensionedPV(cc.Eg, hist); err != nil {
			return nil, fmt.Errorf("%s.pv: %w", path, err)
		}
	}

	switch bc.Heating {
	case config.HeatingCHP:
		if err := bld.AddDimensionedCHP(hist); err != nil {
			return nil, fmt.Errorf("%s.chp: %w", path, err)
		}
	case config.HeatingHeatpump:
		d := bc.Heatpump
		d.ReferenceTemperatures = b.reference
		err := bld.AddDimensionedHeatpump(d, hist)
		switch {
		case errors.Is(err, thermal.ErrInfeasible):
			log.Warnf("%s: no heatpump fits (%v), building stays self-supplied", path, err)
		case err != nil:
			return nil, fmt.Errorf("%s.heatpump: %w", path, err)
		}
	}
	return bld, nil
}
