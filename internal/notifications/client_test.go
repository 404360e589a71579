package notifications

import (
	"testing"

	"silverlink/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.Send:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestClient_TrySendDeliversDropNoticeWhenFull(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 2)}

	c.TrySend([]byte(`{"n":1}`))
	c.TrySend([]byte(`{"n":2}`))

	evicted := testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues(hub.Name(), "evicted"))
	c.TrySend([]byte(`{"n":3}`))

	assert.Equal(t, []string{`{"n":2}`, string(dropNotice)}, drain(c))
	assert.Equal(t, evicted+1,
		testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues(hub.Name(), "evicted")))
}

func TestClient_TrySendOnClosedChannel(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1)}
	close(c.Send)

	closed := testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues(hub.Name(), "closed"))
	require.NotPanics(t, func() { c.TrySend([]byte(`{}`)) })
	assert.Equal(t, closed+1,
		testutil.ToFloat64(observability.WebSocketBackpressureDrops.WithLabelValues(hub.Name(), "closed")))
}
