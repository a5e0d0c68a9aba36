package thermal

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"cellsim/internal/component"
	"cellsim/internal/control"
	"cellsim/internal/hist"
	"cellsim/internal/rnd"
	"cellsim/internal/storage"
)

// Storage fill levels steering the building CHP system.
var buildingCHPLevels = control.Thresholds{LowLow: 0.05, Low: 0.2, High: 0.3, HighHigh: 0.95}

// BuildingCHP is a micro CHP with peak boiler, heating buffer and a hot
// water tank. The CHP charges the hot water tank first; what the tank
// cannot take goes to the heating buffer together with the boiler output.
type BuildingCHP struct {
	chp      *component.CHP
	boiler   *component.Boiler
	storage  *storage.Storage
	hotWater *storage.Storage
	chpOn    bool
	boilerOn bool
	season   modeSwitch
	levels   control.Thresholds
	lastLoss float64

	genE *hist.Ring
	genT *hist.Ring
}

// NewBuildingCHP designs a system for norm heating load qHLN (W) and the
// DIN 4708 hot water demand characteristic n.
func NewBuildingCHP(qHLN, n float64, r *rand.Rand, histSize int) (*BuildingCHP, error) {
	if qHLN < 0 {
		return nil, fmt.Errorf("%w: norm heating load %.1f W is negative", ErrInvalid, qHLN)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: hot water demand characteristic %.2f is negative", ErrInvalid, n)
	}

	share := rnd.Uniform(r, 0.3, 0.6)
	powCHP := share * qHLN
	powBoiler := (1 - share) * qHLN

	chp, err := component.NewCHP(powCHP, histSize)
	if err != nil {
		return nil, err
	}
	boiler, err := component.NewBoiler(powBoiler, r, histSize)
	if err != nil {
		return nil, err
	}

	capWh, volume := storage.HeatingStorage(powCHP, 40, r)
	heating, err := bufferTank(capWh, storage.LossParameter(volume, capWh), qHLN, histSize)
	if err != nil {
		return nil, fmt.Errorf("heating storage: %w", err)
	}
	capHW := storage.HotWaterStorage(n, 60)
	hotWater, err := bufferTank(capHW, 0.01, capHW/0.5, histSize)
	if err != nil {
		return nil, fmt.Errorf("hot water storage: %w", err)
	}

	log.Infof("designed CHP system: CHP %.2f kW, boiler %.2f kW, heating storage %.2f kWh, hot water storage %.2f kWh",
		powCHP/1000, powBoiler/1000, capWh/1000, capHW/1000)

	return &BuildingCHP{
		chp:      chp,
		boiler:   boiler,
		storage:  heating,
		hotWater: hotWater,
		season:   modeSwitch{mode: Intermediate, hyst: 0.5},
		levels:   buildingCHPLevels,
		genE:     hist.New(histSize),
		genT:     hist.New(histSize),
	}, nil
}

func (s *BuildingCHP) control(mode Mode) {
	l := s.levels
	f := s.storage.RelativeCharge()
	fHW := s.hotWater.RelativeCharge()

	switch mode {
	case Winter:
		switch {
		case f <= l.LowLow:
			s.chpOn, s.boilerOn = true, true
		case f <= l.Low && !s.chpOn:
			s.chpOn, s.boilerOn = true, false
		case f >= l.High && s.boilerOn:
			s.chpOn, s.boilerOn = true, false
		case f >= l.HighHigh:
			if fHW >= l.HighHigh {
				s.chpOn = false
			}
			s.boilerOn = false
		}
		if fHW <= l.LowLow {
			s.chpOn = true
		}
	case Intermediate:
		s.boilerOn = false
		if f <= l.LowLow || fHW <= l.LowLow {
			s.chpOn = true
		} else if f >= l.High && fHW >= l.HighHigh {
			s.chpOn = false
		}
	case Summer:
		s.boilerOn = false
		if fHW <= l.LowLow {
			s.chpOn = true
		} else if fHW >= l.HighHigh {
			s.chpOn = false
		}
	}
}

func (s *BuildingCHP) Step(heatingDemand, hotWater, _, tHeatLim, tOutMean float64) (powE, genT float64) {
	s.control(s.season.update(tHeatLim, tOutMean))

	powE, chpT, _ := s.chp.Step(actuation(s.chpOn))
	boilerT, _ := s.boiler.Step(actuation(s.boilerOn))

	hwRequest := chpT - hotWater
	hwAccepted, hwLoss := s.hotWater.Step(hwRequest)

	// surplus or shortfall of the hot water tank is passed to the buffer
	powT := hwRequest - hwAccepted + boilerT
	request := powT - heatingDemand
	accepted, loss := s.storage.Step(request)

	s.lastLoss = hwLoss + loss
	s.genE.Save(powE)
	s.genT.Save(chpT + boilerT)
	return powE, heatingDemand + hotWater + request - accepted + s.lastLoss
}

func (s *BuildingCHP) Losses() float64 { return s.lastLoss }

// Mode returns the current seasonal operating mode.
func (s *BuildingCHP) Mode() Mode { return s.season.mode }

func (s *BuildingCHP) CHP() *component.CHP               { return s.chp }
func (s *BuildingCHP) Boiler() *component.Boiler         { return s.boiler }
func (s *BuildingCHP) Storage() *storage.Storage         { return s.storage }
func (s *BuildingCHP) HotWaterStorage() *storage.Storage { return s.hotWater }

// History returns electrical and thermal generation, oldest first.
func (s *BuildingCHP) History() (genE, genT []float64) {
	return s.genE.Values(), s.genT.Values()
}

func actuation(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
