// Package control defines the dispatch decision contract of thermal
// systems and its rule based, baseline and learned implementations.
package control

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned for malformed controller parameters.
var ErrInvalid = errors.New("invalid controller")

// SystemState is the cell gateway view handed to a controller.
type SystemState struct {
	GenE          float64 `json:"gen_e"`
	LoadE         float64 `json:"load_e"`
	GenT          float64 `json:"gen_t"`
	LoadT         float64 `json:"load_t"`
	ContributionE float64 `json:"contribution_e"` // cell systems' electrical supply
	ContributionT float64 `json:"contribution_t"` // cell systems' thermal supply
	Fuel          float64 `json:"fuel"`
}

// Ambient holds the weather observation of the current step.
type Ambient struct {
	GlobalIrradiance float64 `json:"global_irradiance"`
	SolarElevation   float64 `json:"solar_elevation"`
	SolarAzimuth     float64 `json:"solar_azimuth"`
	Temperature      float64 `json:"temperature"`
}

// Actuation is the decision for one step: 0 = off, 1 = rated power.
// Binary controllers only emit 0 or 1.
type Actuation struct {
	CHP    float64 `json:"chp"`
	Boiler float64 `json:"boiler"`
}

func (a Actuation) CHPOn() bool    { return a.CHP > 0 }
func (a Actuation) BoilerOn() bool { return a.Boiler > 0 }

func onOff(chp, boiler bool) Actuation {
	var a Actuation
	if chp {
		a.CHP = 1
	}
	if boiler {
		a.Boiler = 1
	}
	return a
}

// Controller decides the unit dispatch of a thermal system. It is called
// exactly once per step, before the system's storage is stepped.
type Controller interface {
	Decide(fraction float64, state SystemState, amb Ambient) Actuation
}

// Kind selects a controller implementation.
type Kind string

const (
	KindRuleBased Kind = "rule_based"
	KindBaseline  Kind = "baseline"
	KindLearned   Kind = "learned"
)

// Options configures New.
type Options struct {
	Thresholds  Thresholds
	WeightsPath string // learned controller artifact
}

// New builds the controller of the given kind. An empty kind selects the
// rule based default.
func New(kind Kind, opts Options) (Controller, error) {
	th := opts.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds
	}
	switch kind {
	case "", KindRuleBased:
		return NewRuleBased(th)
	case KindBaseline:
		return NewBaseline(th)
	case KindLearned:
		if opts.WeightsPath == "" {
			return nil, fmt.Errorf("%w: learned controller needs a weights file", ErrInvalid)
		}
		return LoadLearned(opts.WeightsPath)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
}
