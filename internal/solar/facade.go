// Package solar computes irradiance on vertical building facades.
package solar

import "math"

// Facade indexes the four window orientations.
type Facade int

const (
	South Facade = iota
	West
	North
	East
)

// facadeAzimuth is the facade normal in degrees, measured like the solar
// azimuth of the boundary conditions (0 = south, positive towards west).
var facadeAzimuth = [4]float64{0, 90, 180, 270}

// windowTilt is the tilt of a vertical window.
const windowTilt = math.Pi / 2

// Gains holds area specific irradiance (W/m²) per facade.
type Gains [4]float64

// Sum returns the total over all facades.
func (g Gains) Sum() float64 {
	return g[South] + g[West] + g[North] + g[East]
}

// Sky is the irradiance and sun position of one step.
type Sky struct {
	Direct    float64 // W/m² beam
	Diffuse   float64 // W/m²
	Global    float64 // W/m², used as diffuse when no split is available
	Elevation float64 // degrees
	Azimuth   float64 // degrees
}

// FacadeGains returns the irradiance on south, west, north and east facing
// vertical windows. Beam irradiance only reaches a facade while the sun is
// above the horizon and in front of it.
func FacadeGains(s Sky) Gains {
	direct, diffuse := s.Direct, s.Diffuse
	if direct <= 0 && diffuse <= 0 {
		direct, diffuse = 0, math.Max(s.Global, 0)
	}

	var g Gains
	h := s.Elevation * math.Pi / 180
	if h > 0 && direct > 0 {
		gamma := s.Azimuth * math.Pi / 180
		for i, az := range facadeAzimuth {
			delta := normalizeAngle(az*math.Pi/180 - gamma)
			if delta > -math.Pi/2 && delta < math.Pi/2 {
				g[i] += direct * (math.Sin(h)*math.Cos(windowTilt) +
					math.Cos(h)*math.Cos(delta)*math.Sin(windowTilt))
			}
		}
	}

	sky := diffuse * (1 + math.Cos(windowTilt)) / 2
	for i := range g {
		g[i] += sky
	}
	return g
}

// normalizeAngle maps an angle in radians to (-π, π].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
