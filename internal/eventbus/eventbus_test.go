package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(8)
	got := make(chan *Envelope, 8)

	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{"AvatarSat"}}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "1", EventType: "AvatarStood"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "2", EventType: "AvatarSat"}))

	select {
	case ev := <-got:
		assert.Equal(t, "2", ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("событие не доставлено")
	}

	sub.Unsubscribe()
	assert.Eventually(t, func() bool { return bus.Metrics().Published == 2 }, time.Second, 10*time.Millisecond)
}

func TestMatchFilter(t *testing.T) {
	ev := &Envelope{EventType: "AvatarSat", Source: "seating"}

	assert.True(t, matchFilter(ev, Filter{}))
	assert.True(t, matchFilter(ev, Filter{Types: []string{"AvatarStood", "AvatarSat"}}))
	assert.False(t, matchFilter(ev, Filter{Types: []string{"AvatarStood"}}))
	assert.False(t, matchFilter(ev, Filter{Sources: []string{"physics"}}))
}

func TestForwarder(t *testing.T) {
	from := NewMemoryBus(8)
	to := NewMemoryBus(8)
	got := make(chan *Envelope, 8)

	_, err := to.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	_, err = StartForwarder(context.Background(), from, to, Filter{Types: []string{"AvatarSat"}})
	require.NoError(t, err)

	require.NoError(t, from.Publish(context.Background(), &Envelope{ID: "skip", EventType: "Other"}))
	require.NoError(t, from.Publish(context.Background(), &Envelope{ID: "fwd", EventType: "AvatarSat"}))

	select {
	case ev := <-got:
		assert.Equal(t, "fwd", ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("событие не переслано")
	}
}

func TestMetricsExporter_Collect(t *testing.T) {
	bus := NewMemoryBus(8)
	exporter := NewMetricsExporter(bus, prometheus.NewRegistry())

	require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "1", EventType: "AvatarSat"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "2", EventType: "AvatarSat"}))

	prev := exporter.collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published))

	exporter.collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published))
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "seating.AvatarSat", subjectFor("AvatarSat"))
}

func TestMemoryBus_PreservesOrder(t *testing.T) {
	bus := NewMemoryBus(64)
	defer bus.Close()

	got := make(chan string, 64)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got <- ev.ID
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: string(rune('a' + i)), Priority: 9}))
	}
	for i := 0; i < 20; i++ {
		select {
		case id := <-got:
			assert.Equal(t, string(rune('a'+i)), id)
		case <-time.After(2 * time.Second):
			t.Fatal("событие не доставлено")
		}
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(4)
	bus.Close()
	bus.Close()

	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{ID: "late"}), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryBus_CloseDeliversAccepted(t *testing.T) {
	bus := NewMemoryBus(32)

	var handled atomic.Int32
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		time.Sleep(2 * time.Millisecond)
		handled.Add(1)
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{ID: "e", Priority: 9}))
	}
	bus.Close()

	assert.Equal(t, int32(10), handled.Load())
}

func TestMemoryBus_CloseReleasesBlockedPublisher(t *testing.T) {
	// Шина без dispatchLoop: буфер остаётся заполненным
	mb := &MemoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, 1),
		capacity:    1,
		done:        make(chan struct{}),
		dispatched:  make(chan struct{}),
	}
	mb.buffer <- &Envelope{ID: "fill"}

	published := make(chan error, 1)
	go func() {
		published <- mb.Publish(context.Background(), &Envelope{ID: "high", Priority: 9})
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		mb.Close()
		close(closed)
	}()

	select {
	case err := <-published:
		assert.ErrorIs(t, err, ErrBusClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Publish не вернулся после Close")
	}

	go mb.dispatchLoop()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close не завершился")
	}
}
