package model

import (
	"fmt"
	"strings"
	"time"
)

// StepHours is the fixed simulation step (15 minutes).
const StepHours = 0.25

// StepsPerDay is the number of simulation steps in one day.
const StepsPerDay = 96

// AgentType is the standard load profile class of an agent.
type AgentType int

const (
	PHH  AgentType = iota // private household
	BSLa                  // business, profile a
	BSLc                  // business, profile c
)

var agentTypeNames = [...]string{"PHH", "BSLa", "BSLc"}

func (t AgentType) String() string {
	if t < PHH || t > BSLc {
		return fmt.Sprintf("AgentType(%d)", int(t))
	}
	return agentTypeNames[t]
}

// Valid reports whether t is one of the known agent classes.
func (t AgentType) Valid() bool {
	return t >= PHH && t <= BSLc
}

// ParseAgentType maps a case-insensitive class name to its AgentType.
func ParseAgentType(s string) (AgentType, error) {
	for i, name := range agentTypeNames {
		if strings.EqualFold(s, name) {
			return AgentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown agent type %q", s)
}

// SLP holds standard load profile factors (W) indexed by AgentType.
type SLP [3]float64

// For returns the factor of the given class, 0 for unknown classes.
func (s SLP) For(t AgentType) float64 {
	if !t.Valid() {
		return 0
	}
	return s[t]
}

// BoundaryCondition is the shared input of one simulation step.
type BoundaryCondition struct {
	Time               time.Time
	SLP                SLP
	HotWater           float64 // hot water day profile factor
	AmbientTemperature float64 // °C
	GlobalIrradiance   float64 // W/m²
	DirectIrradiance   float64 // W/m²
	DiffuseIrradiance  float64 // W/m²
	SolarElevation     float64 // degrees
	SolarAzimuth       float64 // degrees
	WindSpeed          float64 // m/s at 10 m
}

// TimeRange is an inclusive span of boundary condition timestamps.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Steps returns the number of simulation steps covered by the range.
func (tr TimeRange) Steps() int {
	if tr.End.Before(tr.Start) {
		return 0
	}
	return int(tr.End.Sub(tr.Start)/(15*time.Minute)) + 1
}
