package simulator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"cellsim/internal/control"
	"cellsim/internal/model"
)

// BoundarySource provides the boundary conditions of consecutive steps.
type BoundarySource interface {
	Len() int
	At(i int) model.BoundaryCondition
}

// State represents the current simulation state.
type State struct {
	Time    time.Time `json:"time"`
	Step    int       `json:"step"`  // steps done
	Steps   int       `json:"steps"` // steps available
	Speed   float64   `json:"speed"` // steps per second
	Running bool      `json:"running"`
}

// StepResult is the cell balance of one step.
type StepResult struct {
	Index   int                 `json:"index"`
	Time    time.Time           `json:"time"`
	Balance model.Balance       `json:"balance"`
	State   control.SystemState `json:"state"`
}

// Summary holds running energy totals of a run.
type Summary struct {
	Steps int `json:"steps"`

	GenEKWh  float64 `json:"gen_e_kwh"`
	LoadEKWh float64 `json:"load_e_kwh"`
	GenTKWh  float64 `json:"gen_t_kwh"`
	LoadTKWh float64 `json:"load_t_kwh"`
	FuelKWh  float64 `json:"fuel_kwh"`

	GridImportKWh float64 `json:"grid_import_kwh"`
	GridExportKWh float64 `json:"grid_export_kwh"`
	PeakImportW   float64 `json:"peak_import_w"`
	PeakExportW   float64 `json:"peak_export_w"`
}

func (s *Summary) add(b model.Balance, st control.SystemState) {
	dt := model.StepHours / 1000
	s.Steps++
	s.GenEKWh += b.GenE * dt
	s.LoadEKWh += b.LoadE * dt
	s.GenTKWh += b.GenT * dt
	s.LoadTKWh += b.LoadT * dt
	s.FuelKWh += st.Fuel * dt

	if e := b.Electrical(); e < 0 {
		s.GridImportKWh += -e * dt
		s.PeakImportW = math.Max(s.PeakImportW, -e)
	} else {
		s.GridExportKWh += e * dt
		s.PeakExportW = math.Max(s.PeakExportW, e)
	}
}

// SelfSufficiency returns the share of the electrical load not imported
// from the grid, in [0,1].
func (s Summary) SelfSufficiency() float64 {
	if s.LoadEKWh <= 0 {
		return 1
	}
	return math.Max(0, 1-s.GridImportKWh/s.LoadEKWh)
}

// Callback receives simulation events.
type Callback interface {
	OnState(state State)
	OnStep(result StepResult)
	OnSummary(summary Summary)
}

// Callbacks fans events out to several callbacks in order.
type Callbacks []Callback

func (cs Callbacks) OnState(s State) {
	for _, c := range cs {
		c.OnState(s)
	}
}

func (cs Callbacks) OnStep(r StepResult) {
	for _, c := range cs {
		c.OnStep(r)
	}
}

func (cs Callbacks) OnSummary(s Summary) {
	for _, c := range cs {
		c.OnSummary(s)
	}
}

type nopCallback struct{}

func (nopCallback) OnState(State)     {}
func (nopCallback) OnStep(StepResult) {}
func (nopCallback) OnSummary(Summary) {}

// Simulate steps cell through the first steps conditions of src in strict
// chronological order. steps <= 0 runs the whole source. cb may be nil.
func Simulate(ctx context.Context, cell *Cell, src BoundarySource, steps int, cb Callback) (Summary, error) {
	var sum Summary
	if steps <= 0 {
		steps = src.Len()
	}
	if steps > src.Len() {
		return sum, fmt.Errorf("%w: %d steps requested, boundary conditions cover %d", ErrInvalid, steps, src.Len())
	}
	if cb == nil {
		cb = nopCallback{}
	}

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		bc := src.At(i)
		bal := cell.Step(bc)
		st := cell.State()
		sum.add(bal, st)
		cb.OnStep(StepResult{Index: i, Time: bc.Time, Balance: bal, State: st})

		if (i+1)%model.StepsPerDay == 0 {
			log.Debugf("simulated day %d (%s), balance %.1f W", (i+1)/model.StepsPerDay, bc.Time.Format(time.DateOnly), bal.Electrical())
		}
	}
	cb.OnSummary(sum)
	return sum, nil
}

// CellFactory builds a fresh cell, used to restart a replay.
type CellFactory func() (*Cell, error)

// Engine replays a scenario step by step at configurable speed.
type Engine struct {
	mu       sync.Mutex
	build    CellFactory
	cell     *Cell
	src      BoundarySource
	callback Callback

	running bool
	speed   float64 // steps per second
	next    int     // index of the next step
	carry   float64 // fractional steps left from the last tick
	summary Summary

	stopCh chan struct{}
}

func New(build CellFactory, src BoundarySource, cb Callback) (*Engine, error) {
	cell, err := build()
	if err != nil {
		return nil, err
	}
	if cb == nil {
		cb = nopCallback{}
	}
	return &Engine{
		build:    build,
		cell:     cell,
		src:      src,
		callback: cb,
		speed:    model.StepsPerDay, // one simulated day per second
	}, nil
}

// State returns the current simulation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	s := State{
		Step:    e.next,
		Steps:   e.src.Len(),
		Speed:   e.speed,
		Running: e.running,
	}
	if e.next < e.src.Len() {
		s.Time = e.src.At(e.next).Time
	} else if e.src.Len() > 0 {
		s.Time = e.src.At(e.src.Len() - 1).Time
	}
	return s
}

// Summary returns the totals accumulated since the last reset.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Cell returns the cell currently simulated.
func (e *Engine) Cell() *Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cell
}

// Start begins the simulation loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.next >= e.src.Len() {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stop := e.stopCh
	e.mu.Unlock()

	e.broadcastState()
	go e.loop(stop)
}

// Pause stops the simulation loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.broadcastState()
}

// SetSpeed sets the replay speed in steps per second.
func (e *Engine) SetSpeed(speed float64) {
	speed = math.Max(0.1, math.Min(speed, 10000))

	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()

	e.broadcastState()
}

// Reset rebuilds the cell and rewinds to the first step. Entity state is
// recurrent, so a replay cannot seek backwards any other way.
func (e *Engine) Reset() error {
	cell, err := e.build()
	if err != nil {
		return fmt.Errorf("rebuild cell: %w", err)
	}
	e.mu.Lock()
	e.cell = cell
	e.next = 0
	e.carry = 0
	e.summary = Summary{}
	e.mu.Unlock()

	e.broadcastState()
	e.broadcastSummary()
	return nil
}

// Step advances the simulation by exactly one step. It reports false when
// no boundary conditions are left. Does not require Start().
func (e *Engine) Step() bool {
	e.mu.Lock()
	if e.next >= e.src.Len() {
		e.running = false
		e.mu.Unlock()
		return false
	}
	bc := e.src.At(e.next)
	bal := e.cell.Step(bc)
	st := e.cell.State()
	e.summary.add(bal, st)
	res := StepResult{Index: e.next, Time: bc.Time, Balance: bal, State: st}
	e.next++
	ended := e.next >= e.src.Len()
	summary := e.summary
	e.mu.Unlock()

	e.callback.OnStep(res)
	e.callback.OnSummary(summary)
	if ended {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		e.broadcastState()
	}
	return true
}

const tickInterval = 100 * time.Millisecond

func (e *Engine) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.tick() {
				return
			}
		}
	}
}

// tick advances one frame. Returns true if the simulation reached the end.
func (e *Engine) tick() bool {
	e.mu.Lock()
	n := e.speed*tickInterval.Seconds() + e.carry
	whole := int(n)
	e.carry = n - float64(whole)
	e.mu.Unlock()

	for i := 0; i < whole; i++ {
		if !e.Step() {
			return true
		}
	}
	e.broadcastState()

	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.running
}

func (e *Engine) broadcastState() {
	e.mu.Lock()
	s := e.stateLocked()
	e.mu.Unlock()
	e.callback.OnState(s)
}

func (e *Engine) broadcastSummary() {
	e.mu.Lock()
	s := e.summary
	e.mu.Unlock()
	e.callback.OnSummary(s)
}
