package thermal

import "fmt"

// Mode is the seasonal operating mode of a building heating system.
type Mode int

const (
	Winter Mode = iota
	Intermediate
	Summer
)

func (m Mode) String() string {
	switch m {
	case Winter:
		return "winter"
	case Intermediate:
		return "intermediate"
	case Summer:
		return "summer"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// modeSwitch moves between seasonal modes when the mean outside
// temperature leaves a band of width hyst around the heat limit.
type modeSwitch struct {
	mode Mode
	hyst float64 // K
}

func (s *modeSwitch) update(tHeatLim, tOutMean float64) Mode {
	switch s.mode {
	case Winter:
		if tOutMean > tHeatLim-0.8*s.hyst {
			s.mode = Intermediate
		}
	case Intermediate:
		if tOutMean > tHeatLim+1.2*s.hyst {
			s.mode = Summer
		} else if tOutMean < tHeatLim-1.2*s.hyst {
			s.mode = Winter
		}
	case Summer:
		if tOutMean < tHeatLim+0.8*s.hyst {
			s.mode = Intermediate
		}
	}
	return s.mode
}
