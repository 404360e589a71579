package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(nil)

	a, err := hub.Register("s1", nil)
	require.NoError(t, err)
	b, err := hub.Register("s1", nil)
	require.NoError(t, err)
	other, err := hub.Register("s2", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count("s1"))

	hub.Publish(context.Background(), "s1", []byte(`{"type":"screen"}`))

	assert.Equal(t, `{"type":"screen"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"screen"}`, string(<-b.Send))
	assert.Empty(t, other.Send)

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Count("s1"))

	_ = hub.Shutdown(context.Background())
	assert.Equal(t, 0, hub.Count("s1"))
}

func TestHub_SessionConnectionLimit(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < maxConnsPerSession; i++ {
		_, err := hub.Register("busy", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("busy", nil)
	assert.Error(t, err)

	_, err = hub.Register("quiet", nil)
	assert.NoError(t, err)
}

func TestHub_CloseSessionClosesSendChannels(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register("s1", nil)
	require.NoError(t, err)

	hub.CloseSession("s1")
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count("s1"))

	// Sending to a closed client is recovered, not a panic.
	c.TrySend([]byte("late"))
	hub.UnregisterClient(c)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register("s1", nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send)+5; i++ {
		c.TrySend([]byte("x"))
	}
	assert.Len(t, c.Send, cap(c.Send))
}

func TestHub_PublishThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(NewNotifier(rdb))
	require.NoError(t, hub.StartWiring(ctx))

	c, err := hub.Register("s9", nil)
	require.NoError(t, err)

	hub.Publish(ctx, "s9", []byte(`{"type":"chat"}`))

	assert.Eventually(t, func() bool {
		return len(c.Send) == 1
	}, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, `{"type":"chat"}`, string(<-c.Send))
}

func TestNotifier_DisabledIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishSession(context.Background(), "s", []byte("x")))
	assert.NoError(t, n.StartSessionSubscriber(context.Background(), func(string, []byte) {}))
	assert.Equal(t, "sessions:events:abc", SessionChannel("abc"))
}
