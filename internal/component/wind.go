package component

import (
	"fmt"
	"math"

	"cellsim/internal/hist"
)

const (
	airDensity      = 1.2  // kg/m³
	roughnessLength = 0.1  // m, farmland with hedges
	referenceHeight = 10.0 // m, height of measured wind speed
)

// WindConfig describes a wind turbine.
type WindConfig struct {
	HubHeight   float64 `yaml:"hub_height"`   // m
	RotorRadius float64 `yaml:"rotor_radius"` // m
	CutInSpeed  float64 `yaml:"cut_in_speed"` // m/s
	RatedSpeed  float64 `yaml:"rated_speed"`  // m/s
	CutOutSpeed float64 `yaml:"cut_out_speed"`
	RatedPowerW float64 `yaml:"rated_power_w"` // 0 derives it from rotor and efficiency
	Efficiency  float64 `yaml:"efficiency"`
}

// Wind converts wind speed at reference height into electrical power.
type Wind struct {
	cfg        WindConfig
	ratedPower float64

	genE *hist.Ring
}

func NewWind(cfg WindConfig, histSize int) (*Wind, error) {
	switch {
	case cfg.HubHeight <= roughnessLength:
		return nil, fmt.Errorf("%w: hub height %.1f m", ErrInvalid, cfg.HubHeight)
	case cfg.RotorRadius < 0:
		return nil, fmt.Errorf("%w: rotor radius %.1f m is negative", ErrInvalid, cfg.RotorRadius)
	case cfg.CutInSpeed < 0 || cfg.RatedSpeed <= cfg.CutInSpeed || cfg.CutOutSpeed < cfg.RatedSpeed:
		return nil, fmt.Errorf("%w: wind speeds must satisfy 0 <= cut-in < rated <= cut-out", ErrInvalid)
	case cfg.Efficiency < 0 || cfg.Efficiency > 1:
		return nil, fmt.Errorf("%w: efficiency %.3f not in [0,1]", ErrInvalid, cfg.Efficiency)
	case cfg.RatedPowerW < 0:
		return nil, fmt.Errorf("%w: rated power %.1f W is negative", ErrInvalid, cfg.RatedPowerW)
	}

	rated := cfg.RatedPowerW
	if rated == 0 {
		area := math.Pi / 2 * cfg.RotorRadius * cfg.RotorRadius
		rated = area * airDensity * math.Pow(cfg.RatedSpeed, 3) * cfg.Efficiency
	}
	return &Wind{cfg: cfg, ratedPower: rated, genE: hist.New(histSize)}, nil
}

// HubSpeed scales the reference wind speed to hub height (log law).
func (w *Wind) HubSpeed(ws float64) float64 {
	return ws * math.Log(w.cfg.HubHeight/roughnessLength) / math.Log(referenceHeight/roughnessLength)
}

// Step returns the electrical generation for wind speed ws at 10 m.
func (w *Wind) Step(ws float64) float64 {
	v := w.HubSpeed(ws)

	var gen float64
	switch {
	case v < w.cfg.CutInSpeed || v > w.cfg.CutOutSpeed:
		gen = 0
	case v >= w.cfg.RatedSpeed:
		gen = w.ratedPower
	default:
		gen = w.ratedPower * math.Pow(v/w.cfg.RatedSpeed, 3)
	}
	w.genE.Save(gen)
	return gen
}

func (w *Wind) RatedPower() float64 { return w.ratedPower }

func (w *Wind) History() []float64 { return w.genE.Values() }
