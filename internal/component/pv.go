// Package component implements the generation units of a cell: PV, wind,
// CHP, boiler and heatpump.
package component

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"cellsim/internal/hist"
	"cellsim/internal/rnd"
)

// ErrInvalid is returned for unit parameters outside their domain.
var ErrInvalid = errors.New("invalid component parameter")

// PV is a photovoltaic plant described by its effective area.
type PV struct {
	area float64 // m², includes module efficiency

	genE *hist.Ring
}

// NewPV dimensions a plant from the consumption of the agents it serves:
// area = U(0.8,1.2) * cocSum * 1000/eg * demand, with eg the mean annual
// global irradiation in kWh/m².
func NewPV(eg, cocSum, demand float64, r *rand.Rand, histSize int) (*PV, error) {
	if eg <= 0 {
		return nil, fmt.Errorf("%w: annual irradiation %.1f kWh/m² must be positive", ErrInvalid, eg)
	}
	if cocSum < 0 || demand < 0 {
		return nil, fmt.Errorf("%w: negative PV demand (coc sum %.2f, demand %.3f)", ErrInvalid, cocSum, demand)
	}
	area := rnd.Jitter(r) * cocSum * 1000 / eg * demand
	return &PV{area: area, genE: hist.New(histSize)}, nil
}

// NewPVWithArea creates a plant with an explicit effective area.
func NewPVWithArea(area float64, histSize int) (*PV, error) {
	if area < 0 {
		return nil, fmt.Errorf("%w: PV area %.2f m² is negative", ErrInvalid, area)
	}
	return &PV{area: area, genE: hist.New(histSize)}, nil
}

// Step returns the electrical generation for the given global irradiance.
func (p *PV) Step(irradiance float64) float64 {
	gen := 0.0
	if irradiance > 0 {
		gen = p.area * irradiance
	}
	p.genE.Save(gen)
	return gen
}

func (p *PV) Area() float64 { return p.area }

// History returns the recorded generation, oldest first.
func (p *PV) History() []float64 { return p.genE.Values() }
