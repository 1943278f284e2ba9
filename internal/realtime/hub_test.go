package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return WSMessage{}
	}
}

func TestHub_LocalDeliveryIsPerUser(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	alice, bob := uuid.New(), uuid.New()

	a1 := NewClient(hub, alice, nil, zap.NewNop())
	a2 := NewClient(hub, alice, nil, zap.NewNop())
	b := NewClient(hub, bob, nil, zap.NewNop())
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	assert.Equal(t, 2, hub.ConnectionCount(alice))

	hub.PublishUserEvent(context.Background(), alice, "org_context.changed", map[string]string{"to": "x"})

	for _, c := range []*Client{a1, a2} {
		msg := receive(t, c)
		assert.Equal(t, "org_context.changed", msg.Event)
		assert.JSONEq(t, `{"to":"x"}`, string(msg.Data))
	}
	select {
	case <-b.Messages():
		t.Fatal("other user must not receive the event")
	default:
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	c := NewClient(hub, uuid.New(), nil, zap.NewNop())
	hub.Register(c)
	hub.Unregister(c)

	_, ok := <-c.Messages()
	assert.False(t, ok)
	assert.Zero(t, hub.ConnectionCount(c.UserID))
}

func TestHub_RedisFanOutDeliversOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ps := NewRedisPubSub(rdb, zap.NewNop())
	hub := NewHub(zap.NewNop(), ps, ps)
	user := uuid.New()
	c := NewClient(hub, user, nil, zap.NewNop())
	hub.Register(c)
	t.Cleanup(func() { hub.Unregister(c) })

	hub.PublishUserEvent(context.Background(), user, "org_context.changed", map[string]int{"n": 1})

	msg := receive(t, c)
	var body map[string]int
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, 1, body["n"])

	select {
	case extra := <-c.Messages():
		t.Fatalf("duplicate delivery: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}
