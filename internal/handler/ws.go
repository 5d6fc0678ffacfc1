package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dan9191/fx-ledger/internal/metrics"
	"github.com/Dan9191/fx-ledger/internal/models"
	"github.com/Dan9191/fx-ledger/internal/service"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMessage = 4096
	sendBuffer = 16
)

// Client is one websocket connection on /operation
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// OperationsSocket upgrades the request and serves operation messages until the peer disconnects.
// Each message is answered with a plain-text reply in arrival order.
func (h *Handler) OperationsSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &Client{Conn: conn, Send: make(chan []byte, sendBuffer)}
	h.registerClient(c)
	h.log.Info("WebSocket opened")

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// readPump reads messages from the connection and queues the replies
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		h.unregisterClient(c)
		c.Conn.Close()
		h.log.Info("WebSocket closed")
	}()

	c.Conn.SetReadLimit(maxMessage)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("WebSocket error: %v", err)
			}
			return
		}

		reply := h.handleMessage(ctx, message)
		if !queueReply(c, []byte(reply), writeWait) {
			h.log.Warnf("Client send buffer stuck for %s, closing connection", writeWait)
			return
		}
	}
}

// queueReply waits up to timeout for room in the client's send buffer
func queueReply(c *Client, reply []byte, timeout time.Duration) bool {
	select {
	case c.Send <- reply:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.Send <- reply:
		return true
	case <-timer.C:
		return false
	}
}

// writePump writes queued replies and keeps the connection alive with pings
func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one request message and returns the reply text
func (h *Handler) handleMessage(ctx context.Context, message []byte) string {
	var req models.OperationRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return replyText(fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
	}

	if req.Method == models.MethodGetBalances {
		if req.Account == "" {
			return replyText(fmt.Errorf("%w: account is required", service.ErrInvalidRequest))
		}
		return fmt.Sprintf("Your balance=%s %s", h.svc.Balance(req.Account).StringFixed(2), h.svc.BaseCurrency())
	}

	if _, err := h.svc.Submit(ctx, req); err != nil {
		return replyText(err)
	}
	return "Success"
}

func replyText(err error) string {
	return fmt.Sprintf("%s: %v", service.KindOf(err), err)
}

func (h *Handler) registerClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.ActiveConnections.Inc()
}

func (h *Handler) unregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		metrics.ActiveConnections.Dec()
	}
}

// CloseAll disconnects every open websocket client
func (h *Handler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.Conn.Close()
	}
}
