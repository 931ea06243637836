package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"indicator-overlay/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{} // closed when writePump exits
	hub     *Hub
	traceID string

	seq int64 // owned by readPump
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One response per request frame, never coalesced.
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("ws client disconnected", "frames", c.seq, "trace_id", c.traceID)
	}()

	c.conn.SetReadLimit(maxBodyBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx := logger.WithTraceID(context.Background(), c.traceID)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read error", "error", err, "trace_id", c.traceID)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		c.seq++
		out := encodeFrame(ctx, c.handle(ctx, msg))
		select {
		case c.send <- out:
		case <-c.done:
			return
		}
	}
}

// handle answers one request frame.
func (c *Client) handle(ctx context.Context, msg []byte) WSFrame {
	frame := WSFrame{Seq: c.seq}

	var req OverlayRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		frame.Error = "invalid JSON: " + err.Error()
		return frame
	}

	o, err := c.hub.svc.Overlay(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrInvalidRequest) {
			slog.Error("ws overlay failed", append([]any{"seq", c.seq, "error", err}, logger.LogWithTrace(ctx)...)...)
		}
		frame.Error = err.Error()
		return frame
	}
	frame.Data = o
	return frame
}

// encodeFrame marshals f, replacing an unencodable frame with an error frame
// that keeps the sequence number.
func encodeFrame(ctx context.Context, f WSFrame) []byte {
	out, err := json.Marshal(f)
	if err == nil {
		return out
	}
	slog.Error("ws frame encode failed", append([]any{"seq", f.Seq, "error", err}, logger.LogWithTrace(ctx)...)...)
	out, _ = json.Marshal(WSFrame{Seq: f.Seq, Error: "internal error: response could not be encoded"})
	return out
}
