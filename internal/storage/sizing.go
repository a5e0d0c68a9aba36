package storage

import (
	"math"

	"golang.org/x/exp/rand"

	"cellsim/internal/rnd"
)

const (
	waterHeatCapacity = 1.162 // Wh/(kg K)
	waterDensity      = 983.2 // kg/m³
)

// ModelVolumes are the buffer tank sizes available on the market, in m³.
var ModelVolumes = []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.75, 0.95, 1.5, 2, 3, 5}

func tankCapacity(volume, deltaT float64) float64 {
	return volume * waterHeatCapacity * waterDensity * deltaT
}

// HeatingStorage sizes a buffer tank for a heat generator of powT watts,
// drawing 50..100 l per kW and picking the nearest model volume. It returns
// the capacity in Wh for the temperature spread deltaT and the volume in m³.
func HeatingStorage(powT, deltaT float64, r *rand.Rand) (capWh, volume float64) {
	litresPerKW := rnd.Uniform(r, 50, 100) * 1e-3 // m³/kW
	exact := powT * 1e-3 * litresPerKW

	volume = ModelVolumes[0]
	for _, v := range ModelVolumes[1:] {
		if math.Abs(exact-v) < math.Abs(exact-volume) {
			volume = v
		}
	}
	return tankCapacity(volume, deltaT), volume
}

// LossParameter returns the self-discharge rate (1/h) of a cylindrical tank
// with height 4.5 r losing 15 W/m².
func LossParameter(volume, capWh float64) float64 {
	if capWh <= 0 {
		return 0
	}
	radius := math.Cbrt(volume / (math.Pi * 4.5))
	surface := math.Pi * 11 * radius * radius
	return surface * 15 / capWh
}

// HotWaterStorage returns the capacity (Wh) of the smallest model tank
// satisfying the DIN 4708 demand characteristic n.
func HotWaterStorage(n, deltaT float64) float64 {
	if n <= 0 {
		return tankCapacity(ModelVolumes[0], deltaT)
	}
	// 5820 Wh fills a standard bath tub
	w2tn := 5820 * n * (1 + math.Sqrt(n)) / math.Sqrt(n)
	minVolume := w2tn / (deltaT * waterHeatCapacity * waterDensity)
	for _, v := range ModelVolumes {
		if minVolume < v {
			return tankCapacity(v, deltaT)
		}
	}
	return tankCapacity(ModelVolumes[len(ModelVolumes)-1], deltaT)
}
