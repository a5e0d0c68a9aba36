package results

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"cellsim/internal/simulator"
)

// Collector keeps step results in memory for export.
type Collector struct {
	mu    sync.Mutex
	steps []StoredStep
}

func (c *Collector) OnState(simulator.State)     {}
func (c *Collector) OnSummary(simulator.Summary) {}

func (c *Collector) OnStep(res simulator.StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, newStoredStep(uuid.Nil, res))
}

// Steps returns a copy of the collected steps.
func (c *Collector) Steps() []StoredStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StoredStep, len(c.steps))
	copy(out, c.steps)
	return out
}

// WriteCSV writes steps with a header line.
func WriteCSV(w io.Writer, steps []StoredStep) error {
	if err := gocsv.Marshal(steps, w); err != nil {
		return fmt.Errorf("writing steps: %w", err)
	}
	return nil
}

// ExportCSV writes steps to the file at path.
func ExportCSV(path string, steps []StoredStep) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, steps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
