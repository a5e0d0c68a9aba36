// Package config loads simulation scenarios from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/model"
	"cellsim/internal/simulator"
	"cellsim/internal/thermal"
)

// ErrInvalid is returned for scenarios that cannot be built.
var ErrInvalid = errors.New("invalid scenario")

// Heating system kinds of a building.
const (
	HeatingNone     = ""
	HeatingCHP      = "chp"
	HeatingHeatpump = "heatpump"
)

// Config is a complete scenario.
type Config struct {
	Name        string `yaml:"name"`
	Seed        uint64 `yaml:"seed"` // 0 draws a time based seed
	LogLevel    string `yaml:"log_level"`
	Steps       int    `yaml:"steps"` // 0 runs all boundary conditions
	Parallelism int    `yaml:"parallelism"`
	HistorySize int    `yaml:"history_size"`

	Cell CellConfig `yaml:"cell"`
}

// CellConfig describes one cell and, recursively, its sub cells.
type CellConfig struct {
	Eg    float64 `yaml:"eg"`      // mean annual global irradiation, kWh/m²
	TOutN float64 `yaml:"t_out_n"` // norm outside temperature, °C

	Buildings    []BuildingConfig `yaml:"buildings"`
	SepBSLAgents []SepBSLConfig   `yaml:"sep_bsl_agents"`
	SubCells     []CellConfig     `yaml:"sub_cells"`

	PV   *PVConfig             `yaml:"pv"`
	Wind *component.WindConfig `yaml:"wind"`
	CHP  *CellCHPConfig        `yaml:"chp"`
}

// BuildingConfig describes Count identical buildings.
type BuildingConfig struct {
	simulator.BuildingConfig `yaml:",inline"`

	Count    int                    `yaml:"count"`
	Agents   []AgentConfig          `yaml:"agents"`
	PV       bool                   `yaml:"pv"` // dimension a PV plant from the agents
	Heating  string                 `yaml:"heating"`
	Heatpump thermal.HeatpumpDesign `yaml:"heatpump"`
}

// AgentConfig describes Count agents of one class.
type AgentConfig struct {
	Type  string  `yaml:"type"`
	Count int     `yaml:"count"`
	COC   float64 `yaml:"coc"` // 0 samples the consumption factor
}

// SepBSLConfig describes Count businesses connected to the cell directly.
type SepBSLConfig struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
	PV    bool   `yaml:"pv"`
}

// PVConfig is a cell level PV plant with a fixed effective area.
type PVConfig struct {
	Area float64 `yaml:"area"` // m²
}

// CellCHPConfig is the district heating supply of a cell.
type CellCHPConfig struct {
	thermal.CellCHPConfig `yaml:",inline"`

	Controller ControllerConfig `yaml:"controller"`
}

// ControllerConfig selects the dispatch controller of a cell CHP system.
type ControllerConfig struct {
	Kind       control.Kind       `yaml:"kind"`
	Weights    string             `yaml:"weights"`
	Thresholds control.Thresholds `yaml:"thresholds"`
}

// Options returns the controller construction options.
func (c ControllerConfig) Options() control.Options {
	return control.Options{Thresholds: c.Thresholds, WeightsPath: c.Weights}
}

// Load reads and validates the scenario at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a scenario, fills defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "cell"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	c.Cell.applyDefaults()
}

func (c *CellConfig) applyDefaults() {
	for i := range c.Buildings {
		if c.Buildings[i].Count == 0 {
			c.Buildings[i].Count = 1
		}
		for j := range c.Buildings[i].Agents {
			if c.Buildings[i].Agents[j].Count == 0 {
				c.Buildings[i].Agents[j].Count = 1
			}
		}
	}
	for i := range c.SepBSLAgents {
		if c.SepBSLAgents[i].Count == 0 {
			c.SepBSLAgents[i].Count = 1
		}
	}
	for i := range c.SubCells {
		sub := &c.SubCells[i]
		if sub.Eg == 0 {
			sub.Eg = c.Eg
		}
		if sub.TOutN == 0 {
			sub.TOutN = c.TOutN
		}
		sub.applyDefaults()
	}
}

// Validate checks what can be checked without building the cell tree.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps %d is negative", ErrInvalid, c.Steps)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("%w: history size %d is negative", ErrInvalid, c.HistorySize)
	}
	return c.Cell.validate("cell")
}

func (c *CellConfig) validate(path string) error {
	if c.Eg <= 0 {
		return fmt.Errorf("%w: %s: eg %.1f kWh/m² must be positive", ErrInvalid, path, c.Eg)
	}
	for i, b := range c.Buildings {
		bp := fmt.Sprintf("%s.buildings[%d]", path, i)
		if b.Count < 0 {
			return fmt.Errorf("%w: %s: count %d is negative", ErrInvalid, bp, b.Count)
		}
		if err := b.BuildingConfig.Validate(); err != nil {
			return fmt.Errorf("%s: %w", bp, err)
		}
		n := 0
		for j, a := range b.Agents {
			if _, err := model.ParseAgentType(a.Type); err != nil {
				return fmt.Errorf("%w: %s.agents[%d]: %v", ErrInvalid, bp, j, err)
			}
			if a.COC != 0 && a.COC < 1 {
				return fmt.Errorf("%w: %s.agents[%d]: COC %.2f below 1", ErrInvalid, bp, j, a.COC)
			}
			n += a.Count
		}
		if n > b.MaxAgents {
			return fmt.Errorf("%w: %s: %d agents exceed max_agents %d", ErrInvalid, bp, n, b.MaxAgents)
		}
		switch b.Heating {
		case HeatingNone, HeatingCHP, HeatingHeatpump:
		default:
			return fmt.Errorf("%w: %s: unknown heating %q", ErrInvalid, bp, b.Heating)
		}
		if b.Heating != HeatingNone && b.AtDHN {
			return fmt.Errorf("%w: %s: buildings at the district heating network have no own heating", ErrInvalid, bp)
		}
	}
	for i, a := range c.SepBSLAgents {
		t, err := model.ParseAgentType(a.Type)
		if err != nil || t == model.PHH {
			return fmt.Errorf("%w: %s.sep_bsl_agents[%d]: type %q must be BSLa or BSLc", ErrInvalid, path, i, a.Type)
		}
	}
	if c.PV != nil && c.PV.Area < 0 {
		return fmt.Errorf("%w: %s.pv: area %.1f m² is negative", ErrInvalid, path, c.PV.Area)
	}
	for i := range c.SubCells {
		if err := c.SubCells[i].validate(fmt.Sprintf("%s.sub_cells[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
