package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case frame := <-ch:
		var msg Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Message{}
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, unsubA := hub.subscribe()
	b, unsubB := hub.subscribe()
	defer unsubB()
	assert.Equal(t, 2, hub.Count())

	require.NoError(t, hub.Broadcast(context.Background(), "order_update", map[string]string{"order_id": "o1"}))

	for _, ch := range []<-chan []byte{a, b} {
		msg := receive(t, ch)
		assert.Equal(t, "order_update", msg.Event)
		assert.Equal(t, map[string]any{"order_id": "o1"}, msg.Data)
	}

	unsubA()
	unsubA()
	assert.Equal(t, 1, hub.Count())
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ch, unsub := hub.subscribe()
	defer unsub()

	for i := 0; i < clientBuffer+5; i++ {
		hub.Deliver([]byte(`{"event":"x","data":null}`))
	}
	assert.Len(t, ch, clientBuffer)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ch, unsub := hub.subscribe()

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	unsub()

	late, _ := hub.subscribe()
	_, open = <-late
	assert.False(t, open)
	assert.Equal(t, 0, hub.Count())
}

func TestRedisBridgeRelaysToLocalHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub(zap.NewNop())
	ch, unsub := hub.subscribe()
	defer unsub()

	bridge := NewRedisBridge(client, "campus-market:events", hub, zap.NewNop())
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Close()

	require.NoError(t, bridge.Broadcast(context.Background(), "kycUpdated", map[string]string{"status": "APPROVED"}))

	msg := receive(t, ch)
	assert.Equal(t, "kycUpdated", msg.Event)
	assert.Equal(t, map[string]any{"status": "APPROVED"}, msg.Data)
}

func TestUpgradeRequired(t *testing.T) {
	app := fiber.New()
	hub := NewHub(zap.NewNop())
	app.Get("/ws", UpgradeRequired(), hub.Handler())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
