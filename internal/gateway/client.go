package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"pandacare-chat/internal/dto"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultPingInterval    = 30 * time.Second
	defaultWriteDeadline   = 5 * time.Second
	defaultCloseDeadline   = 2 * time.Second
	defaultMaxMessageSize  = 512 * 1024
	defaultSendBufferSize  = 16
	defaultPongWaitPadding = 10 * time.Second
)

// Client is one live socket of a user. A user may hold several.
type Client struct {
	Conn    *websocket.Conn
	Message chan *dto.InboundFrame
	ID      string
	UserID  string

	pingInterval time.Duration
	done         chan struct{}
	mu           sync.Mutex
	isClosed     bool
	log          zerolog.Logger
}

func (cl *Client) keepAlive() {
	ticker := time.NewTicker(cl.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteDeadline))
			cl.mu.Unlock()

			if err != nil {
				cl.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (cl *Client) writeMessage() {
	defer cl.close()

	for {
		select {
		case <-cl.done:
			return
		case frame, ok := <-cl.Message:
			if !ok {
				return
			}

			b, err := json.Marshal(frame)
			if err != nil {
				cl.log.Error().Err(err).Msg("failed to marshal outgoing frame")
				continue
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err = cl.Conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline))
			if err == nil {
				err = cl.Conn.WriteMessage(websocket.TextMessage, b)
			}
			cl.mu.Unlock()

			if err != nil {
				cl.log.Debug().Err(err).Msg("failed to write frame")
				return
			}
		}
	}
}

// readMessage feeds every text frame to handle until the socket fails, then
// unregisters the client.
func (cl *Client) readMessage(hub *Hub, handle func(data []byte)) {
	defer func() {
		if r := recover(); r != nil {
			cl.log.Error().Interface("panic", r).Msg("recovered in read loop")
		}
		close(cl.done)
		hub.unregister(cl)
		cl.log.Debug().Msg("client disconnected")
	}()

	pongWait := cl.pingInterval + defaultPongWaitPadding
	cl.Conn.SetReadLimit(defaultMaxMessageSize)
	_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, message, err := cl.Conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				cl.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(message)
	}
}

func (cl *Client) close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return
	}
	cl.isClosed = true
	_ = cl.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(defaultCloseDeadline))
	_ = cl.Conn.Close()
}
