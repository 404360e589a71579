package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"silverlink/internal/assistant"
	"silverlink/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the app on a loopback port and returns its address.
func listen(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

type wsFrame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var f wsFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == typ {
			return f
		}
	}
}

func TestWebSocketSessionStream(t *testing.T) {
	srv, _ := newTestServer(t)
	addr := listen(t, srv)
	id := createSession(t, srv.App())

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/sessions/"+id, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	snap := readUntil(t, conn, "snapshot")
	assert.Equal(t, id, snap.SessionID)
	require.Eventually(t, func() bool { return srv.hub.Count(id) == 1 }, time.Second, 10*time.Millisecond)

	onboard(t, srv, id)

	created := readUntil(t, conn, "profile_created")
	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(created.Data, &profile))
	assert.Equal(t, "陈美玲", profile.Name)

	screen := readUntil(t, conn, "screen_changed")
	assert.JSONEq(t, `{"from":"ONBOARDING","to":"HOME"}`, string(screen.Data))

	readUntil(t, conn, "matches_updated")
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	addr := listen(t, srv)
	id := createSession(t, srv.App())

	status, _ := doJSON(t, srv.App(), http.MethodGet, "/ws/sessions/"+id, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/sessions/missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGatewayClientAgainstServer(t *testing.T) {
	srv, _ := newTestServer(t)
	addr := listen(t, srv)
	client := assistant.NewHTTPClient("http://"+addr+"/ai", "", 2*time.Second)
	ctx := context.Background()
	pool, err := srv.directory.Members(ctx)
	require.NoError(t, err)

	analysis, err := client.AnalyzeProfile(ctx, assistant.AnalysisRequest{
		Intro:        "喜欢下棋",
		RawInterests: []string{"象棋"},
		Region:       "香港, 湾仔区",
	})
	require.NoError(t, err)
	assert.Contains(t, analysis.Tags, "象棋爱好者")

	matches, err := client.MatchFriends(ctx, pool[0], pool[1:])
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Nil(t, matches[0].Profile)

	plans, err := client.SuggestActivities(ctx, pool[1])
	require.NoError(t, err)
	assert.NotEmpty(t, plans)
}
