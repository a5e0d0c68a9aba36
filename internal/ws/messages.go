package ws

import (
	"encoding/json"
	"time"

	"cellsim/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type SetSpeedPayload struct {
	Speed float64 `json:"speed"` // steps per second
}

// Server -> Client messages

type SimStatePayload struct {
	Time    string  `json:"time"`
	Step    int     `json:"step"`
	Steps   int     `json:"steps"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
}

type CellStepPayload struct {
	Step          int     `json:"step"`
	Timestamp     string  `json:"timestamp"`
	GenE          float64 `json:"gen_e"`
	LoadE         float64 `json:"load_e"`
	GenT          float64 `json:"gen_t"`
	LoadT         float64 `json:"load_t"`
	ContributionE float64 `json:"contribution_e"`
	ContributionT float64 `json:"contribution_t"`
	Fuel          float64 `json:"fuel"`
}

type SummaryPayload struct {
	Steps           int     `json:"steps"`
	GenEKWh         float64 `json:"gen_e_kwh"`
	LoadEKWh        float64 `json:"load_e_kwh"`
	GenTKWh         float64 `json:"gen_t_kwh"`
	LoadTKWh        float64 `json:"load_t_kwh"`
	FuelKWh         float64 `json:"fuel_kwh"`
	GridImportKWh   float64 `json:"grid_import_kwh"`
	GridExportKWh   float64 `json:"grid_export_kwh"`
	PeakImportW     float64 `json:"peak_import_w"`
	PeakExportW     float64 `json:"peak_export_w"`
	SelfSufficiency float64 `json:"self_sufficiency"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ScenarioInfo describes the simulated cell tree.
type ScenarioInfo struct {
	Name         string `json:"name"`
	Buildings    int    `json:"buildings"`
	Agents       int    `json:"agents"`
	SepBSLAgents int    `json:"sep_bsl_agents"`
	SubCells     int    `json:"sub_cells"`
}

type DataLoadedPayload struct {
	Scenario  ScenarioInfo  `json:"scenario"`
	Steps     int           `json:"steps"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart    = "sim:start"
	TypeSimPause    = "sim:pause"
	TypeSimSetSpeed = "sim:set_speed"
	TypeSimStep     = "sim:step"
	TypeSimReset    = "sim:reset"

	// Server -> Client
	TypeSimState      = "sim:state"
	TypeCellStep      = "cell:step"
	TypeSummaryUpdate = "summary:update"
	TypeDataLoaded    = "data:loaded"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromEngine(s simulator.State) SimStatePayload {
	return SimStatePayload{
		Time:    s.Time.UTC().Format(time.RFC3339),
		Step:    s.Step,
		Steps:   s.Steps,
		Speed:   s.Speed,
		Running: s.Running,
	}
}

func CellStepFromEngine(r simulator.StepResult) CellStepPayload {
	return CellStepPayload{
		Step:          r.Index,
		Timestamp:     r.Time.UTC().Format(time.RFC3339),
		GenE:          r.Balance.GenE,
		LoadE:         r.Balance.LoadE,
		GenT:          r.Balance.GenT,
		LoadT:         r.Balance.LoadT,
		ContributionE: r.State.ContributionE,
		ContributionT: r.State.ContributionT,
		Fuel:          r.State.Fuel,
	}
}

func SummaryFromEngine(s simulator.Summary) SummaryPayload {
	return SummaryPayload{
		Steps:           s.Steps,
		GenEKWh:         s.GenEKWh,
		LoadEKWh:        s.LoadEKWh,
		GenTKWh:         s.GenTKWh,
		LoadTKWh:        s.LoadTKWh,
		FuelKWh:         s.FuelKWh,
		GridImportKWh:   s.GridImportKWh,
		GridExportKWh:   s.GridExportKWh,
		PeakImportW:     s.PeakImportW,
		PeakExportW:     s.PeakExportW,
		SelfSufficiency: s.SelfSufficiency(),
	}
}

// ScenarioInfoFromCell describes a cell tree.
func ScenarioInfoFromCell(name string, c *simulator.Cell) ScenarioInfo {
	m := c.Members()
	return ScenarioInfo{
		Name:         name,
		Buildings:    m.Buildings,
		Agents:       m.Agents,
		SepBSLAgents: m.SepBSLAgents,
		SubCells:     m.SubCells,
	}
}
