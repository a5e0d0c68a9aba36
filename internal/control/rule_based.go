package control

import "fmt"

// Thresholds are storage charge fractions of the two-level hysteresis.
type Thresholds struct {
	LowLow   float64 `yaml:"low_low"`
	Low      float64 `yaml:"low"`
	High     float64 `yaml:"high"`
	HighHigh float64 `yaml:"high_high"`
}

var DefaultThresholds = Thresholds{LowLow: 0.05, Low: 0.2, High: 0.3, HighHigh: 0.95}

func (t Thresholds) Validate() error {
	if t.LowLow < 0 || t.LowLow > t.Low || t.Low > t.High || t.High > t.HighHigh {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= LL <= L <= H <= HH, got %+v", ErrInvalid, t)
	}
	return nil
}

// RuleBased is the default CHP/boiler dispatch. It keeps its previous
// decision unless a threshold rule fires, so units do not short-cycle.
type RuleBased struct {
	th     Thresholds
	chp    bool
	boiler bool
}

func NewRuleBased(th Thresholds) (*RuleBased, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &RuleBased{th: th}, nil
}

func (c *RuleBased) Decide(fraction float64, _ SystemState, _ Ambient) Actuation {
	switch {
	case fraction <= c.th.LowLow:
		c.chp, c.boiler = true, true
	case fraction <= c.th.Low && !c.chp:
		c.chp, c.boiler = true, false
	case fraction >= c.th.High && c.boiler:
		c.chp, c.boiler = true, false
	case fraction >= c.th.HighHigh:
		c.chp, c.boiler = false, false
	}
	return onOff(c.chp, c.boiler)
}

// Baseline runs the CHP continuously and only adds the boiler when the
// storage is nearly empty, until it recovers above the high threshold.
type Baseline struct {
	th     Thresholds
	boiler bool
}

func NewBaseline(th Thresholds) (*Baseline, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Baseline{th: th}, nil
}

func (c *Baseline) Decide(fraction float64, _ SystemState, _ Ambient) Actuation {
	if fraction <= c.th.LowLow {
		c.boiler = true
	} else if fraction >= c.th.High {
		c.boiler = false
	}
	return onOff(true, c.boiler)
}
