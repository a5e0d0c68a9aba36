package thermal

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/hist"
	"cellsim/internal/storage"
)

var buildingHeatpumpLevels = control.Thresholds{LowLow: 0.01, Low: 0.05, High: 0.2, HighHigh: 0.95}

// summerLoad is the heatpump modulation used to keep the buffer warm in
// summer.
const summerLoad = 0.2

// BuildingHeatpump is an air/water heatpump with a bivalent peak boiler
// sized for the full norm heating load and a heating buffer.
type BuildingHeatpump struct {
	heatpump *component.Heatpump
	boiler   *component.Boiler
	storage  *storage.Storage
	hpState  float64
	boilerOn bool
	season   modeSwitch
	levels   control.Thresholds
	lastLoss float64
	sizing   HeatpumpSizing

	conE *hist.Ring
	genT *hist.Ring
}

// NewBuildingHeatpump sizes and builds a heatpump system. It returns an
// error wrapping ErrInfeasible when no heatpump fits the building.
func NewBuildingHeatpump(qHLN, tOutN, tHeatLim float64, d HeatpumpDesign, r *rand.Rand, histSize int) (*BuildingHeatpump, error) {
	sz, err := SizeHeatpump(qHLN, tOutN, tHeatLim, d)
	if err != nil {
		return nil, err
	}
	ts := d.SupplyTemperature

	hp, err := component.NewHeatpump(sz.PowerW, ts, sz.MinWorkingTemperature, histSize)
	if err != nil {
		return nil, err
	}
	boiler, err := component.NewBoiler(qHLN, r, histSize)
	if err != nil {
		return nil, err
	}

	// 5 K spread above supply, 20 °C room temperature
	capWh, volume := storage.HeatingStorage(sz.PowerW, ts+5-20, r)
	maxPow := sz.PowerW*component.PowerFactor(sz.PowerW, 20, ts) + qHLN
	st, err := bufferTank(capWh, storage.LossParameter(volume, capWh), maxPow, histSize)
	if err != nil {
		return nil, fmt.Errorf("heatpump storage: %w", err)
	}

	log.Infof("designed heatpump system after %d iterations: heatpump %.2f kW, mean COP %.2f, min working temperature %.1f °C, storage %.2f kWh, boiler %.2f kW",
		sz.Iterations, sz.PowerW/1000, sz.MeanCOP, sz.MinWorkingTemperature, capWh/1000, qHLN/1000)

	return &BuildingHeatpump{
		heatpump: hp,
		boiler:   boiler,
		storage:  st,
		season:   modeSwitch{mode: Intermediate, hyst: 2},
		levels:   buildingHeatpumpLevels,
		sizing:   sz,
		conE:     hist.New(histSize),
		genT:     hist.New(histSize),
	}, nil
}

func (s *BuildingHeatpump) control(mode Mode) {
	l := s.levels
	f := s.storage.RelativeCharge()

	switch mode {
	case Winter:
		if f <= l.LowLow {
			s.boilerOn = true
			s.hpState = 1
		}
		if f > l.Low {
			s.boilerOn = false
		} else {
			s.hpState = 1
		}
		if f >= l.HighHigh {
			s.hpState = 0
		}
	case Intermediate:
		s.boilerOn = false
		if f <= l.LowLow {
			s.hpState = 1
		} else if f > l.High {
			s.hpState = 0
		}
	case Summer:
		s.boilerOn = false
		if f <= l.LowLow {
			s.hpState = summerLoad
		} else if f > l.Low {
			s.hpState = 0
		}
	}
}

// Step returns the heatpump consumption as negative electrical power.
func (s *BuildingHeatpump) Step(heatingDemand, hotWater, tOut, tHeatLim, tOutMean float64) (powE, genT float64) {
	s.control(s.season.update(tHeatLim, tOutMean))

	conE, hpT := s.heatpump.Step(s.hpState, tOut)
	boilerT, _ := s.boiler.Step(actuation(s.boilerOn))

	powT := hpT + boilerT
	accepted, loss := s.storage.Step(powT - heatingDemand - hotWater)
	s.lastLoss = loss

	s.conE.Save(conE)
	s.genT.Save(powT)
	return -conE, powT - accepted + loss
}

func (s *BuildingHeatpump) Losses() float64 { return s.lastLoss }

func (s *BuildingHeatpump) Mode() Mode { return s.season.mode }

// Sizing returns the design the system was built with.
func (s *BuildingHeatpump) Sizing() HeatpumpSizing { return s.sizing }

func (s *BuildingHeatpump) Heatpump() *component.Heatpump { return s.heatpump }
func (s *BuildingHeatpump) Boiler() *component.Boiler     { return s.boiler }
func (s *BuildingHeatpump) Storage() *storage.Storage     { return s.storage }

// History returns electrical consumption and thermal generation.
func (s *BuildingHeatpump) History() (conE, genT []float64) {
	return s.conE.Values(), s.genT.Values()
}
