// Package results persists simulation runs to sqlite and exports per-step
// cell balances as CSV.
package results

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cellsim/internal/simulator"
)

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("run not found")

const batchSize = 500

// Repository stores runs and their step balances in a local sqlite file.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&Run{}, &StoredStep{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

// Close releases the database connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRun inserts run, assigning a new ID when it has none.
func (r *Repository) CreateRun(run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.Create(run).Error
}

// AddSteps appends step results to a run.
func (r *Repository) AddSteps(runID uuid.UUID, steps []simulator.StepResult) error {
	if len(steps) == 0 {
		return nil
	}
	stored := make([]StoredStep, len(steps))
	for i, s := range steps {
		stored[i] = newStoredStep(runID, s)
	}
	return r.db.CreateInBatches(stored, batchSize).Error
}

// FinishRun records the totals of a completed run.
func (r *Repository) FinishRun(runID uuid.UUID, sum simulator.Summary) error {
	run, err := r.GetRun(runID)
	if err != nil {
		return err
	}
	run.Finished = true
	run.Summary = sum
	return r.db.Save(&run).Error
}

func (r *Repository) GetRun(runID uuid.UUID) (Run, error) {
	var run Run
	err := r.db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return run, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

// GetRuns returns the most recent runs first.
func (r *Repository) GetRuns(limit int) ([]Run, error) {
	var runs []Run
	result := r.db.Limit(limit).Order("created_at desc").Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}
	return runs, nil
}

// GetSteps returns the steps of a run in chronological order.
func (r *Repository) GetSteps(runID uuid.UUID) ([]StoredStep, error) {
	var steps []StoredStep
	result := r.db.Where("run_id = ?", runID).Order("step asc").Find(&steps)
	if result.Error != nil {
		return nil, result.Error
	}
	for i := range steps {
		steps[i].Time.Time = steps[i].Timestamp.UTC()
	}
	return steps, nil
}

// DeleteRun removes a run and its steps.
func (r *Repository) DeleteRun(runID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&StoredStep{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Run{ID: runID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil
	})
}
