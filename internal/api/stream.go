package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roach88/pokemart/internal/stock"
)

const writeWait = 10 * time.Second

// Stream message types.
const (
	MessageHello = "hello"
	MessageStock = "stock"
)

// StreamMessage is one frame on the stock stream. The first frame is a
// hello carrying the session id; every later frame carries a Change.
type StreamMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId,omitempty"`
	Change    *stock.Change `json:"change,omitempty"`
}

// streamStock pushes stock changes to a WebSocket client until the client
// disconnects or the storefront closes.
func (s *Server) streamStock(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	sub := s.ctrl.Subscribe(s.streamBuffer)
	defer sub.Close()

	sessionID := uuid.New().String()
	slog.Info("stock stream connected", "session", sessionID)
	defer slog.Info("stock stream disconnected", "session", sessionID)

	if err := writeFrame(ws, StreamMessage{Type: MessageHello, SessionID: sessionID}); err != nil {
		return
	}

	// Clients never send anything meaningful; reading surfaces the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case change, ok := <-sub.C:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "storefront closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeFrame(ws, StreamMessage{Type: MessageStock, Change: &change}); err != nil {
				return
			}
		case <-gone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func writeFrame(ws *websocket.Conn, msg StreamMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(msg); err != nil {
		slog.Warn("failed to write stream frame", "error", err)
		return err
	}
	return nil
}
