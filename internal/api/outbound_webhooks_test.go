package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundWebhooks_DeliversSeatEvents(t *testing.T) {
	received := make(chan OutboundWebhookEvent, 4)
	var badSignatures atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get(HeaderSignature) != SignPayload(body, "s3cret") {
			badSignatures.Add(1)
		}
		var ev OutboundWebhookEvent
		if err := json.Unmarshal(body, &ev); err == nil {
			received <- ev
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log := logging.NewWriterLogger("webhook-test", io.Discard, logging.ERROR)
	manager := NewOutboundWebhookManager("node-1", log)
	defer manager.Close()
	manager.AddWebhook(OutboundWebhook{Name: "audit", URL: srv.URL, Secret: "s3cret", Events: []string{scene.EventAvatarSat}})

	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	_, err := manager.Attach(context.Background(), bus)
	require.NoError(t, err)

	sc := scene.NewScene("hooks", scene.Options{Physics: physics.NewMemoryScene(0), Bus: bus, Logger: log})
	chair := sc.AddSceneObject("chair", vec.Zero)
	id := uuid.New()
	sp, err := sc.AddScenePresence(id, nil, vec.Zero)
	require.NoError(t, err)

	_, err = sp.HandleAgentRequestSit(scene.NewBufferedClient(id), id, chair.UUID, vec.Zero)
	require.NoError(t, err)
	require.NoError(t, sp.StandUp())

	select {
	case ev := <-received:
		assert.Equal(t, scene.EventAvatarSat, ev.EventType)
		assert.Equal(t, "node-1", ev.ServerID)
		assert.Equal(t, id, ev.Data.AvatarID)
		assert.Equal(t, chair.UUID, ev.Data.ObjectID)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook не получил событие")
	}

	// AvatarStood не входит в подписку
	select {
	case ev := <-received:
		t.Fatalf("неожиданное событие %s", ev.EventType)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(0), badSignatures.Load())
}

func TestOutboundWebhooks_RetriesAndCountsFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	manager := NewOutboundWebhookManager("node-1", logging.NewWriterLogger("webhook-test", io.Discard, logging.ERROR))
	manager.retryDelay = time.Millisecond
	hook := manager.AddWebhook(OutboundWebhook{Name: "down", URL: srv.URL, RetryCount: 2})

	manager.enqueue(OutboundWebhookEvent{ID: "1", EventType: scene.EventAvatarStood})
	manager.Close()

	assert.Equal(t, int32(3), calls.Load())
	hooks := manager.GetWebhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, 1, hooks[0].FailureCount)
	assert.True(t, manager.DeleteWebhook(hook.ID))
	assert.False(t, manager.DeleteWebhook(hook.ID))
}

func TestIsSubscribedToEvent(t *testing.T) {
	assert.True(t, isSubscribedToEvent(&OutboundWebhook{}, scene.EventAvatarSat))
	assert.True(t, isSubscribedToEvent(&OutboundWebhook{Events: []string{"*"}}, scene.EventAvatarSat))
	assert.False(t, isSubscribedToEvent(&OutboundWebhook{Events: []string{scene.EventAvatarStood}}, scene.EventAvatarSat))
}
