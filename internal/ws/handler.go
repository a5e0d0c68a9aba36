package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"cellsim/internal/model"
	"cellsim/internal/simulator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes messages to the engine.
type Handler struct {
	hub       *Hub
	engine    *simulator.Engine
	name      string
	timeRange model.TimeRange
}

// NewHandler seeds the hub snapshot with the scenario and the current
// engine state, which every new connection receives first.
func NewHandler(hub *Hub, engine *simulator.Engine, name string, tr model.TimeRange) *Handler {
	h := &Handler{hub: hub, engine: engine, name: name, timeRange: tr}
	h.publish(TypeDataLoaded, h.dataLoaded())
	h.publish(TypeSimState, SimStateFromEngine(engine.State()))
	h.publish(TypeSummaryUpdate, SummaryFromEngine(engine.Summary()))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	// replays data:loaded, sim:state and summary:update
	h.hub.Register(client)
	go client.writePump()

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Warnf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeSimStart:
		h.engine.Start()

	case TypeSimPause:
		h.engine.Pause()

	case TypeSimSetSpeed:
		var p SetSpeedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Warnf("Invalid set_speed payload: %v", err)
			return
		}
		h.engine.SetSpeed(p.Speed)

	case TypeSimStep:
		h.engine.Step()
		h.publish(TypeSimState, SimStateFromEngine(h.engine.State()))

	case TypeSimReset:
		h.engine.Pause()
		if err := h.engine.Reset(); err != nil {
			log.Errorf("Reset failed: %v", err)
			return
		}
		h.publish(TypeDataLoaded, h.dataLoaded())

	default:
		log.Warnf("Unknown message type: %s", env.Type)
	}
}

func (h *Handler) dataLoaded() DataLoadedPayload {
	return DataLoadedPayload{
		Scenario: ScenarioInfoFromCell(h.name, h.engine.Cell()),
		Steps:    h.engine.State().Steps,
		TimeRange: TimeRangeInfo{
			Start: h.timeRange.Start.UTC().Format(time.RFC3339),
			End:   h.timeRange.End.UTC().Format(time.RFC3339),
		},
	}
}

func (h *Handler) publish(msgType string, payload any) {
	if err := h.hub.Publish(msgType, payload); err != nil {
		log.Error(err)
	}
}
