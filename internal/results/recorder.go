package results

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cellsim/internal/simulator"
)

// Recorder is a simulator callback writing step results to a repository
// in batches.
type Recorder struct {
	mu      sync.Mutex
	repo    *Repository
	runID   uuid.UUID
	buf     []simulator.StepResult
	summary simulator.Summary
	err     error
}

// NewRecorder creates run in repo and returns a recorder appending to it.
func NewRecorder(repo *Repository, run *Run) (*Recorder, error) {
	if err := repo.CreateRun(run); err != nil {
		return nil, err
	}
	log.Infof("recording run %s", run.ID)
	return &Recorder{repo: repo, runID: run.ID}, nil
}

func (r *Recorder) RunID() uuid.UUID { return r.runID }

func (r *Recorder) OnState(simulator.State) {}

func (r *Recorder) OnStep(res simulator.StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, res)
	if len(r.buf) >= batchSize {
		r.flushLocked()
	}
}

func (r *Recorder) OnSummary(s simulator.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = s
}

func (r *Recorder) flushLocked() {
	if r.err != nil || len(r.buf) == 0 {
		return
	}
	if err := r.repo.AddSteps(r.runID, r.buf); err != nil {
		log.Errorf("storing steps of run %s: %v", r.runID, err)
		r.err = err
	}
	r.buf = r.buf[:0]
}

// Close writes buffered steps and the run totals. It returns the first
// storage error of the run.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	if r.err != nil {
		return r.err
	}
	return r.repo.FinishRun(r.runID, r.summary)
}
