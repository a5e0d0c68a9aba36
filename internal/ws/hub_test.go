package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := SimStatePayload{
		Time:    "2024-01-15T00:00:00Z",
		Step:    3,
		Steps:   96,
		Speed:   10,
		Running: true,
	}

	msg, err := NewEnvelope(TypeSimState, payload)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeSimState, env.Type)

	var parsed SimStatePayload
	err = json.Unmarshal(env.Payload, &parsed)
	require.NoError(t, err)

	assert.Equal(t, payload, parsed)
}

func TestNewEnvelope_NoPayload(t *testing.T) {
	msg, err := NewEnvelope(TypeSimStart, nil)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeSimStart, env.Type)
	assert.Nil(t, env.Payload)
}

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{hub: hub, send: make(chan []byte, buffer)}
}

func decode(t *testing.T, msg []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 4)

	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-c.send
	assert.False(t, open)
	hub.Unregister(c)
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a, b := newTestClient(hub, 4), newTestClient(hub, 4)
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, hub.Publish(TypeCellStep, CellStepPayload{Step: 5, GenE: 1200}))

	for _, c := range []*Client{a, b} {
		env := decode(t, <-c.send)
		assert.Equal(t, TypeCellStep, env.Type)
		var p CellStepPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, 5, p.Step)
	}
}

func TestHub_RegisterReplaysSnapshotInOrder(t *testing.T) {
	hub := NewHub()

	// published out of order and before anyone listens
	require.NoError(t, hub.Publish(TypeSummaryUpdate, SummaryPayload{Steps: 10, LoadEKWh: 3}))
	require.NoError(t, hub.Publish(TypeSimState, SimStatePayload{Step: 9}))
	require.NoError(t, hub.Publish(TypeSimState, SimStatePayload{Step: 10, Running: true}))
	require.NoError(t, hub.Publish(TypeDataLoaded, DataLoadedPayload{Steps: 96, Scenario: ScenarioInfo{Name: "village"}}))
	require.NoError(t, hub.Publish(TypeCellStep, CellStepPayload{Step: 9}))

	c := newTestClient(hub, 8)
	hub.Register(c)
	require.Len(t, c.send, 3)

	env := decode(t, <-c.send)
	assert.Equal(t, TypeDataLoaded, env.Type)
	var dl DataLoadedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &dl))
	assert.Equal(t, "village", dl.Scenario.Name)

	env = decode(t, <-c.send)
	assert.Equal(t, TypeSimState, env.Type)
	var ss SimStatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &ss))
	assert.Equal(t, 10, ss.Step)
	assert.True(t, ss.Running)

	env = decode(t, <-c.send)
	assert.Equal(t, TypeSummaryUpdate, env.Type)
}

func TestHub_RetainUpdatesSnapshotSilently(t *testing.T) {
	hub := NewHub()
	listener := newTestClient(hub, 4)
	hub.Register(listener)

	require.NoError(t, hub.Retain(TypeSummaryUpdate, SummaryPayload{Steps: 42}))
	assert.Empty(t, listener.send)

	late := newTestClient(hub, 4)
	hub.Register(late)
	env := decode(t, <-late.send)
	var p SummaryPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 42, p.Steps)

	assert.Error(t, hub.Retain(TypeCellStep, CellStepPayload{}))
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, 1)
	hub.Register(c)

	require.NoError(t, hub.Publish(TypeCellStep, CellStepPayload{Step: 1}))
	require.NoError(t, hub.Publish(TypeCellStep, CellStepPayload{Step: 2}))

	var p CellStepPayload
	require.NoError(t, json.Unmarshal(decode(t, <-c.send).Payload, &p))
	assert.Equal(t, 1, p.Step)
	assert.Empty(t, c.send)
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, "sim:start", TypeSimStart)
	assert.Equal(t, "sim:pause", TypeSimPause)
	assert.Equal(t, "sim:set_speed", TypeSimSetSpeed)
	assert.Equal(t, "sim:step", TypeSimStep)
	assert.Equal(t, "sim:reset", TypeSimReset)
	assert.Equal(t, "sim:state", TypeSimState)
	assert.Equal(t, "cell:step", TypeCellStep)
	assert.Equal(t, "summary:update", TypeSummaryUpdate)
	assert.Equal(t, "data:loaded", TypeDataLoaded)
}
