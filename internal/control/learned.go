package control

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
)

// ObservationSize is the length of the controller observation vector.
const ObservationSize = 12

// learnedActions maps Q-network outputs to (CHP, Boiler) decisions.
var learnedActions = [4]Actuation{
	onOff(false, false),
	onOff(true, false),
	onOff(false, true),
	onOff(true, true),
}

// Observation flattens the controller inputs into
// (fraction, gen_e, load_e, gen_t, load_t, cont_e, cont_t, fuel,
// irradiance, elevation, azimuth, temperature).
func Observation(fraction float64, s SystemState, a Ambient) []float64 {
	return []float64{
		fraction,
		s.GenE, s.LoadE, s.GenT, s.LoadT, s.ContributionE, s.ContributionT, s.Fuel,
		a.GlobalIrradiance, a.SolarElevation, a.SolarAzimuth, a.Temperature,
	}
}

// Learned picks the action with the highest Q-value of a trained network.
type Learned struct {
	net   *Network
	scale []float64 // per-feature divisor, nil for raw inputs
}

type learnedArtifact struct {
	Network *Network  `json:"network"`
	Scale   []float64 `json:"scale,omitempty"`
}

func NewLearned(net *Network, scale []float64) (*Learned, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: nil network", ErrInvalid)
	}
	if net.InputSize() != ObservationSize || net.OutputSize() != len(learnedActions) {
		return nil, fmt.Errorf("%w: network maps %d -> %d, want %d -> %d",
			ErrInvalid, net.InputSize(), net.OutputSize(), ObservationSize, len(learnedActions))
	}
	if scale != nil && len(scale) != ObservationSize {
		return nil, fmt.Errorf("%w: %d scale values, want %d", ErrInvalid, len(scale), ObservationSize)
	}
	for i, s := range scale {
		if s == 0 {
			return nil, fmt.Errorf("%w: scale %d is zero", ErrInvalid, i)
		}
	}
	return &Learned{net: net, scale: scale}, nil
}

// LoadLearned reads a JSON artifact {"network": {...}, "scale": [...]}.
func LoadLearned(path string) (*Learned, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read controller weights: %w", err)
	}
	var art learnedArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse controller weights %s: %w", path, err)
	}
	return NewLearned(art.Network, art.Scale)
}

func (c *Learned) Decide(fraction float64, state SystemState, amb Ambient) Actuation {
	obs := Observation(fraction, state, amb)
	if c.scale != nil {
		floats.Div(obs, c.scale)
	}
	q := c.net.Forward(obs)
	return learnedActions[floats.MaxIdx(q)]
}
