// Package storage implements a generic energy buffer with charge and
// discharge efficiency, self-discharge and a power limit.
package storage

import (
	"errors"
	"fmt"
	"math"

	"cellsim/internal/hist"
	"cellsim/internal/model"
)

// ErrInvalid is returned for storage parameters outside their domain.
var ErrInvalid = errors.New("invalid storage parameter")

// Config holds the storage parameters.
type Config struct {
	CapacityWh          float64 `yaml:"capacity_wh"`
	ChargeEfficiency    float64 `yaml:"charge_efficiency"`
	DischargeEfficiency float64 `yaml:"discharge_efficiency"`
	SelfDischarge       float64 `yaml:"self_discharge"` // 1/h
	MaxPowerW           float64 `yaml:"max_power_w"`
	InitialChargeWh     float64 `yaml:"initial_charge_wh"`
}

// Validate checks the parameter domains.
func (c Config) Validate() error {
	switch {
	case c.CapacityWh < 0:
		return fmt.Errorf("%w: capacity %.2f Wh is negative", ErrInvalid, c.CapacityWh)
	case c.ChargeEfficiency <= 0 || c.ChargeEfficiency > 1:
		return fmt.Errorf("%w: charge efficiency %.3f not in (0,1]", ErrInvalid, c.ChargeEfficiency)
	case c.DischargeEfficiency <= 0 || c.DischargeEfficiency > 1:
		return fmt.Errorf("%w: discharge efficiency %.3f not in (0,1]", ErrInvalid, c.DischargeEfficiency)
	case c.SelfDischarge < 0:
		return fmt.Errorf("%w: self discharge %.4f is negative", ErrInvalid, c.SelfDischarge)
	case c.MaxPowerW < 0:
		return fmt.Errorf("%w: max power %.2f W is negative", ErrInvalid, c.MaxPowerW)
	case c.InitialChargeWh < 0 || c.InitialChargeWh > c.CapacityWh:
		return fmt.Errorf("%w: initial charge %.2f Wh not in [0, %.2f]", ErrInvalid, c.InitialChargeWh, c.CapacityWh)
	}
	return nil
}

// Storage is a capacity-bounded energy buffer.
type Storage struct {
	cfg    Config
	charge float64 // Wh

	chargeHist *hist.Ring
}

// New creates a storage holding cfg.InitialChargeWh. histSize is the length
// of the charge history (0 disables it).
func New(cfg Config, histSize int) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Storage{
		cfg:        cfg,
		charge:     cfg.InitialChargeWh,
		chargeHist: hist.New(histSize),
	}, nil
}

// Step requests powerW for one step (positive = charge, negative =
// discharge). It returns the power actually accepted at the storage
// terminals and the power lost to self-discharge and conversion, so that
// accepted*dt == Δcharge + loss*dt.
func (s *Storage) Step(powerW float64) (acceptedW, lossW float64) {
	dt := model.StepHours

	selfLoss := s.charge * s.cfg.SelfDischarge * dt
	if selfLoss > s.charge {
		selfLoss = s.charge
	}
	s.charge -= selfLoss
	lossWh := selfLoss

	p := math.Max(-s.cfg.MaxPowerW, math.Min(s.cfg.MaxPowerW, powerW))

	switch {
	case p > 0:
		energy := p * s.cfg.ChargeEfficiency * dt
		if room := s.cfg.CapacityWh - s.charge; energy > room {
			energy = math.Max(room, 0)
		}
		s.charge += energy
		acceptedW = energy / (s.cfg.ChargeEfficiency * dt)
		lossWh += acceptedW*dt - energy
	case p < 0:
		energy := -p / s.cfg.DischargeEfficiency * dt
		if energy > s.charge {
			energy = s.charge
		}
		s.charge -= energy
		acceptedW = -energy * s.cfg.DischargeEfficiency / dt
		lossWh += energy + acceptedW*dt
	}

	// keep rounding residue from leaving the bounds
	s.charge = math.Max(0, math.Min(s.cfg.CapacityWh, s.charge))

	s.chargeHist.Save(s.charge)
	return acceptedW, lossWh / dt
}

// Charge returns the stored energy in Wh.
func (s *Storage) Charge() float64 { return s.charge }

// RelativeCharge returns charge/capacity in [0,1], 0 for an empty design.
func (s *Storage) RelativeCharge() float64 {
	if s.cfg.CapacityWh <= 0 {
		return 0
	}
	return s.charge / s.cfg.CapacityWh
}

func (s *Storage) Capacity() float64 { return s.cfg.CapacityWh }

func (s *Storage) MaxPower() float64 { return s.cfg.MaxPowerW }

// Config returns the parameters the storage was built with.
func (s *Storage) Config() Config { return s.cfg }

// History returns the recorded charge values, oldest first.
func (s *Storage) History() []float64 { return s.chargeHist.Values() }
