package thermal

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cellsim/internal/component"
)

// Supported norm heating load range of building heatpumps (W).
const (
	MinHeatpumpLoad = 5000.
	MaxHeatpumpLoad = 80000.
)

// blockingFactor accounts for 6 h/day of utility blocking time.
const blockingFactor = 24. / 18.

// HeatpumpDesign holds the building specific heatpump parameters.
type HeatpumpDesign struct {
	SeasonalPerformanceFactor float64 `yaml:"seasonal_performance_factor"`
	SupplyTemperature         float64 `yaml:"supply_temperature"` // °C
	// ReferenceTemperatures are hourly outside temperatures (°C) of a
	// reference period of whole days, usually 8760 values.
	ReferenceTemperatures []float64 `yaml:"-"`
}

// HeatpumpSizing is the result of SizeHeatpump.
type HeatpumpSizing struct {
	PowerW                float64 // nominal thermal power incl. blocking time
	MinWorkingTemperature float64 // °C
	MeanCOP               float64
	Iterations            int
}

// SizeHeatpump designs a heatpump for a building with norm heating load
// qHLN. The lowest working temperature is raised in 1 K steps until the
// mean COP over the remaining heating hours reaches the seasonal
// performance factor; colder hours are left to the peak boiler.
func SizeHeatpump(qHLN, tOutN, tHeatLim float64, d HeatpumpDesign) (HeatpumpSizing, error) {
	var res HeatpumpSizing
	if qHLN < MinHeatpumpLoad || qHLN > MaxHeatpumpLoad {
		return res, fmt.Errorf("%w: norm heating load %.0f W outside [%.0f, %.0f]",
			ErrInfeasible, qHLN, MinHeatpumpLoad, MaxHeatpumpLoad)
	}
	if d.SeasonalPerformanceFactor <= 0 {
		return res, fmt.Errorf("%w: seasonal performance factor %.2f must be positive", ErrInvalid, d.SeasonalPerformanceFactor)
	}
	if d.SupplyTemperature <= 20 {
		return res, fmt.Errorf("%w: supply temperature %.1f °C must exceed room temperature", ErrInvalid, d.SupplyTemperature)
	}
	ref := d.ReferenceTemperatures
	if len(ref) < 24 || len(ref)%24 != 0 {
		return res, fmt.Errorf("%w: %d reference temperatures, want whole days of hourly values", ErrInvalid, len(ref))
	}
	if tHeatLim <= tOutN {
		return res, fmt.Errorf("%w: heat limit %.1f °C not above norm temperature %.1f °C", ErrInvalid, tHeatLim, tOutN)
	}
	ts := d.SupplyTemperature

	powT := qHLN * blockingFactor / component.COP(qHLN, tOutN, ts)

	// hours of heating days that need heat
	heating := make([]bool, len(ref))
	for day := 0; day < len(ref)/24; day++ {
		hours := ref[day*24 : day*24+24]
		if stat.Mean(hours, nil) < tHeatLim {
			for h := range hours {
				heating[day*24+h] = hours[h] <= tHeatLim
			}
		}
	}
	cops := make([]float64, len(ref))
	for i, t := range ref {
		if heating[i] {
			cops[i] = component.COP(powT, t, ts)
		}
	}

	// heating line through (tOutN, qHLN) and (tHeatLim, 0)
	intercept := tHeatLim / (tHeatLim - tOutN) * qHLN
	slope := qHLN / (tOutN - tHeatLim)

	tMin := floats.Min(ref)
	meanCOP := -1.
	for meanCOP < d.SeasonalPerformanceFactor {
		if tMin >= tHeatLim {
			return res, fmt.Errorf("%w: no working temperature reaches a mean COP of %.2f",
				ErrInfeasible, d.SeasonalPerformanceFactor)
		}
		if res.Iterations > 0 {
			tMin++
		}
		var selected []float64
		for i, t := range ref {
			if t < tMin {
				heating[i] = false
			}
			if heating[i] {
				selected = append(selected, cops[i])
			}
		}
		if len(selected) == 0 {
			return res, fmt.Errorf("%w: no heating hours above %.1f °C", ErrInfeasible, tMin)
		}

		powT = (slope*tMin + intercept) / component.PowerFactor(powT, tMin, ts)
		if powT < 1000 {
			return res, fmt.Errorf("%w: heatpump power %.0f W below 1 kW", ErrInfeasible, powT)
		}
		meanCOP = stat.Mean(selected, nil)
		res.Iterations++
	}

	res.PowerW = powT * blockingFactor
	res.MinWorkingTemperature = tMin
	res.MeanCOP = meanCOP
	return res, nil
}

// HourlyMeans averages a series sampled stepsPerHour times an hour into
// hourly values, dropping an incomplete trailing hour.
func HourlyMeans(series []float64, stepsPerHour int) []float64 {
	if stepsPerHour <= 1 {
		return append([]float64(nil), series...)
	}
	out := make([]float64, 0, len(series)/stepsPerHour)
	for i := 0; i+stepsPerHour <= len(series); i += stepsPerHour {
		out = append(out, stat.Mean(series[i:i+stepsPerHour], nil))
	}
	return out
}
