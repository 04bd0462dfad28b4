package feed

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestHub_PublishReachesSessionSubscribers(t *testing.T) {
	h := NewHub(nil)
	a, unsubA := h.Subscribe("s1")
	defer unsubA()
	b, unsubB := h.Subscribe("s1")
	defer unsubB()
	other, unsubOther := h.Subscribe("s2")
	defer unsubOther()

	h.Publish(context.Background(), "s1")

	assert.True(t, received(a))
	assert.True(t, received(b))
	assert.False(t, received(other))
}

func TestHub_SignalsCoalesce(t *testing.T) {
	h := NewHub(nil)
	ch, unsub := h.Subscribe("s1")
	defer unsub()

	for range 5 {
		h.Publish(context.Background(), "s1")
	}
	assert.True(t, received(ch))
	assert.False(t, received(ch))
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(nil)
	ch, unsub := h.Subscribe("s1")
	require.Equal(t, 1, h.Subscribers("s1"))

	unsub()
	unsub()
	require.Equal(t, 0, h.Subscribers("s1"))

	h.Publish(context.Background(), "s1")
	assert.False(t, received(ch))
}

func TestHub_RelayIgnoresOwnAndMalformedMessages(t *testing.T) {
	h := NewHub(nil)
	ch, unsub := h.Subscribe("s1")
	defer unsub()

	own, _ := json.Marshal(message{Origin: h.origin, SessionID: "s1"})
	h.relay(string(own))
	assert.False(t, received(ch))

	h.relay("{not json")
	assert.False(t, received(ch))

	remote, _ := json.Marshal(message{Origin: "other-instance", SessionID: "s1"})
	h.relay(string(remote))
	assert.True(t, received(ch))
}

func TestHub_RunWithoutRedis(t *testing.T) {
	require.NoError(t, NewHub(nil).Run(context.Background()))
}

func TestHub_RedisAcrossInstances(t *testing.T) {
	addr := os.Getenv("GGMEMO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GGMEMO_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	channel := "ggmemo:test:" + time.Now().Format("150405.000000")
	sender := NewHub(nil, WithRedis(client, channel))
	receiver := NewHub(nil, WithRedis(client, channel))
	go func() { _ = receiver.Run(ctx) }()

	ch, unsub := receiver.Subscribe("s1")
	defer unsub()

	require.Eventually(t, func() bool {
		sender.Publish(ctx, "s1")
		return received(ch)
	}, 3*time.Second, 50*time.Millisecond)
}
