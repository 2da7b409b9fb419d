package scene

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, ch <-chan *eventbus.Envelope) *eventbus.Envelope {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("событие не получено")
		return nil
	}
}

func TestSeatEventsPublished(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	received := make(chan *eventbus.Envelope, 16)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: SeatEvents}, func(ctx context.Context, ev *eventbus.Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	s := NewScene("events", Options{Physics: physics.NewMemoryScene(0), Bus: bus})
	part := s.AddSceneObject("chair", vec.Zero)
	part.SetSitTarget(vec.Vec3Float{Z: 1}, vec.QuatIdentity)
	sp, err := s.AddScenePresence(uuid.New(), nil, vec.Zero)
	require.NoError(t, err)

	_, err = sp.HandleAgentRequestSit(nil, sp.UUID(), part.UUID, vec.Zero)
	require.NoError(t, err)

	ev := waitEvent(t, received)
	assert.Equal(t, EventAvatarSat, ev.EventType)
	assert.Equal(t, EventSource, ev.Source)

	se, err := DecodeSeatEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, sp.UUID(), se.AvatarID)
	assert.Equal(t, part.UUID, se.ObjectID)
	assert.Equal(t, []uuid.UUID{sp.UUID()}, se.Occupants)
	assert.Equal(t, sp.UUID(), se.SitTargetAvatar)
	assert.Equal(t, uint64(1), se.Version)

	require.NoError(t, sp.StandUp())

	ev = waitEvent(t, received)
	assert.Equal(t, EventAvatarStood, ev.EventType)
	se, err = DecodeSeatEvent(ev)
	require.NoError(t, err)
	assert.Empty(t, se.Occupants)
	assert.Equal(t, uuid.Nil, se.SitTargetAvatar)
	assert.Equal(t, uint64(2), se.Version)
	assert.Equal(t, "standing", se.State)
}

func TestSeatEventRejected(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	received := make(chan *eventbus.Envelope, 16)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{EventAvatarSitRejected}}, func(ctx context.Context, ev *eventbus.Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	s := NewScene("events", Options{Physics: physics.NewMemoryScene(0), Bus: bus})
	part := s.AddSceneObject("box", vec.Vec3Float{X: 20})
	sp, err := s.AddScenePresence(uuid.New(), nil, vec.Zero)
	require.NoError(t, err)

	_, err = sp.HandleAgentRequestSit(nil, sp.UUID(), part.UUID, vec.Zero)
	require.NoError(t, err)

	se, err := DecodeSeatEvent(waitEvent(t, received))
	require.NoError(t, err)
	assert.Equal(t, SitRejectedOutOfRange.String(), se.Reason)
}

func TestSeatingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	phys := physics.NewMemoryScene(0)
	s := NewScene("metrics", Options{Physics: phys, Metrics: metrics})

	near := s.AddSceneObject("near", vec.Zero)
	far := s.AddSceneObject("far", vec.Vec3Float{X: 30})
	sp, err := s.AddScenePresence(uuid.New(), nil, vec.Zero)
	require.NoError(t, err)

	_, err = sp.HandleAgentRequestSit(nil, sp.UUID(), far.UUID, vec.Zero)
	require.NoError(t, err)
	_, err = sp.HandleAgentRequestSit(nil, sp.UUID(), near.UUID, vec.Zero)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sitRequests.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sitRequests.WithLabelValues("out_of_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.seated))

	require.NoError(t, sp.StandUp())
	require.NoError(t, sp.HandleAgentSitOnGround())
	phys.FailAdd(physics.ErrCapacity)
	assert.Error(t, sp.StandUp())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.stands))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.groundSits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.physicsFailures.WithLabelValues("attach")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.seated))
}
