// Package thermal implements the heat supply systems of buildings and
// cells: CHP plants, heatpumps and peak boilers feeding buffer storages.
package thermal

import (
	"errors"

	"cellsim/internal/storage"
)

var (
	// ErrInvalid is returned for system parameters outside their domain.
	ErrInvalid = errors.New("invalid thermal system")
	// ErrInfeasible is returned when no system can be designed for a
	// building, e.g. a heatpump outside the supported power range.
	ErrInfeasible = errors.New("thermal system infeasible")
)

// HeatingSystem supplies space heating and hot water of one building.
type HeatingSystem interface {
	// Step covers heatingDemand and hotWater (W) and returns the electrical
	// power (positive = generation, negative = consumption) and the
	// thermal power delivered to the building.
	Step(heatingDemand, hotWater, tOut, tHeatLim, tOutMean float64) (powE, genT float64)
	// Losses returns the storage losses of the last step (W). They end up
	// inside the building and reduce the next heating request.
	Losses() float64
}

// storageEfficiency is the charge and discharge efficiency of buffer tanks.
const storageEfficiency = 0.95

func bufferTank(capWh, selfDischarge, maxPowerW float64, histSize int) (*storage.Storage, error) {
	return storage.New(storage.Config{
		CapacityWh:          capWh,
		ChargeEfficiency:    storageEfficiency,
		DischargeEfficiency: storageEfficiency,
		SelfDischarge:       selfDischarge,
		MaxPowerW:           maxPowerW,
	}, histSize)
}
