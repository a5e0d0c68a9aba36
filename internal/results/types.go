package results

import (
	"time"

	"github.com/google/uuid"

	"cellsim/internal/ingest"
	"cellsim/internal/simulator"
)

// Run is the metadata and totals of one simulation run.
type Run struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
	Scenario  string
	Seed      int64
	Start     time.Time
	End       time.Time
	Finished  bool

	Summary simulator.Summary `gorm:"embedded;embeddedPrefix:total_"`
}

// StoredStep is the cell gateway balance of one step.
type StoredStep struct {
	ID    uint      `gorm:"primaryKey" csv:"-"`
	RunID uuid.UUID `gorm:"type:text;index:idx_run_step,priority:1" csv:"-"`
	Step  int       `gorm:"index:idx_run_step,priority:2" csv:"step"`

	Time          ingest.Timestamp `gorm:"-" csv:"time"`
	Timestamp     time.Time        `csv:"-"`
	GenE          float64          `csv:"gen_e"`
	LoadE         float64          `csv:"load_e"`
	GenT          float64          `csv:"gen_t"`
	LoadT         float64          `csv:"load_t"`
	ContributionE float64          `csv:"contribution_e"`
	ContributionT float64          `csv:"contribution_t"`
	Fuel          float64          `csv:"fuel"`
}

func newStoredStep(runID uuid.UUID, r simulator.StepResult) StoredStep {
	return StoredStep{
		RunID:         runID,
		Step:          r.Index,
		Time:          ingest.Timestamp{Time: r.Time},
		Timestamp:     r.Time,
		GenE:          r.Balance.GenE,
		LoadE:         r.Balance.LoadE,
		GenT:          r.Balance.GenT,
		LoadT:         r.Balance.LoadT,
		ContributionE: r.State.ContributionE,
		ContributionT: r.State.ContributionT,
		Fuel:          r.State.Fuel,
	}
}
