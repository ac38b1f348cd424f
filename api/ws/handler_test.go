package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/roguebt/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, h *Handler) string {
	t.Helper()
	r := gin.New()
	r.GET("/ws", h.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readPacket(t *testing.T, conn *websocket.Conn) Packet {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var pkt Packet
	require.NoError(t, json.Unmarshal(raw, &pkt))
	return pkt
}

func TestServeWS_RelaysTurns(t *testing.T) {
	ps := testutil.SetupTestPubSub(t)
	url := newServer(t, NewHandler(ps, "test:turns", nil, zap.NewNop()))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	pkt := readPacket(t, conn)
	assert.Equal(t, "connected", pkt.Type)
	assert.Equal(t, uint64(1), pkt.Seq)

	require.NoError(t, ps.Publish(context.Background(), "test:other", `{"turn":99}`))
	require.NoError(t, ps.Publish(context.Background(), "test:turns", `{"turn":1}`))
	require.NoError(t, ps.Publish(context.Background(), "test:turns", "not json"))
	require.NoError(t, ps.Publish(context.Background(), "test:turns", `{"turn":2}`))

	pkt = readPacket(t, conn)
	assert.Equal(t, "turn", pkt.Type)
	assert.Equal(t, uint64(2), pkt.Seq)
	assert.JSONEq(t, `{"turn":1}`, string(pkt.Payload))

	pkt = readPacket(t, conn)
	assert.Equal(t, uint64(3), pkt.Seq)
	assert.JSONEq(t, `{"turn":2}`, string(pkt.Payload))
}

func TestServeWS_RejectsOrigin(t *testing.T) {
	ps := testutil.SetupTestPubSub(t)
	url := newServer(t, NewHandler(ps, "test:turns", []string{"https://allowed.example"}, zap.NewNop()))

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://allowed.example"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "connected", readPacket(t, conn).Type)
}

func TestServeWS_ClosedPubSub(t *testing.T) {
	ps := testutil.SetupTestPubSub(t)
	require.NoError(t, ps.Close())
	url := newServer(t, NewHandler(ps, "test:turns", nil, zap.NewNop()))

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServeWS_PubSubCloseEndsStream(t *testing.T) {
	ps := testutil.SetupTestPubSub(t)
	url := newServer(t, NewHandler(ps, "test:turns", nil, zap.NewNop()))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readPacket(t, conn)

	require.NoError(t, ps.Close())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
