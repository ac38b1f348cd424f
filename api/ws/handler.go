// Package ws streams turn summaries over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/roguebt/cache"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 64
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
)

// Packet is the envelope of every server message.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler upgrades clients and relays messages published on one channel.
type Handler struct {
	pubsub   cache.PubSub
	channel  string
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a Handler. An empty allowedOrigins accepts any origin.
func NewHandler(pubsub cache.PubSub, channel string, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{pubsub: pubsub, channel: channel, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// ServeWS handles GET /api/turns/ws. The first packet is "connected"; each
// published summary follows as a "turn" packet.
func (h *Handler) ServeWS(c *gin.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgCh, unsub, err := h.pubsub.Subscribe(ctx, h.channel)
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "turn stream unavailable"})
		return
	}
	defer unsub()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, msgCh)
}

// readPump discards client frames and cancels ctx once the peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, msgCh <-chan *cache.Message) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var seq uint64
	send := func(typ string, payload []byte) error {
		seq++
		data, err := json.Marshal(Packet{Seq: seq, Type: typ, Payload: payload})
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if err := send("connected", nil); err != nil {
		return
	}
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				h.logger.Warn("ws dropping non-JSON payload", zap.String("channel", msg.Channel))
				continue
			}
			if err := send("turn", []byte(msg.Payload)); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
