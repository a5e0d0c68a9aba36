package ws

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"cellsim/internal/simulator"
)

// Bridge implements simulator.Callback and publishes events to the
// WebSocket hub. Step and summary updates are throttled to one per
// interval each; a throttled summary still refreshes the hub snapshot.
type Bridge struct {
	hub      *Hub
	interval time.Duration

	mu          sync.Mutex
	lastStep    time.Time
	lastSummary time.Time
}

// NewBridge creates a bridge. An interval of 0 forwards every event.
func NewBridge(hub *Hub, interval time.Duration) *Bridge {
	return &Bridge{hub: hub, interval: interval}
}

func (b *Bridge) due(last *time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if b.interval > 0 && now.Sub(*last) < b.interval {
		return false
	}
	*last = now
	return true
}

func (b *Bridge) OnState(s simulator.State) {
	b.broadcast(TypeSimState, SimStateFromEngine(s))
}

func (b *Bridge) OnStep(r simulator.StepResult) {
	if !b.due(&b.lastStep) {
		return
	}
	b.broadcast(TypeCellStep, CellStepFromEngine(r))
}

func (b *Bridge) OnSummary(s simulator.Summary) {
	p := SummaryFromEngine(s)
	if !b.due(&b.lastSummary) {
		if err := b.hub.Retain(TypeSummaryUpdate, p); err != nil {
			log.Error(err)
		}
		return
	}
	b.broadcast(TypeSummaryUpdate, p)
}

func (b *Bridge) broadcast(msgType string, payload any) {
	if err := b.hub.Publish(msgType, payload); err != nil {
		log.Error(err)
	}
}
