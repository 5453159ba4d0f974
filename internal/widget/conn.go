package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/dto"

	"github.com/gorilla/websocket"
)

const (
	WebsocketPath = "/api/ws"

	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteDeadline    = 5 * time.Second
	defaultMaxMessageSize   = 512 * 1024
)

var (
	ErrDial         = errors.New("widget: dial failed")
	ErrUnauthorized = errors.New("widget: gateway rejected the access token")
)

// Conn is the widget's side of the socket. Receive returns io.EOF once the
// gateway closes the connection normally.
type Conn interface {
	Send(frame dto.OutboundFrame) error
	Receive() ([]byte, error)
	Close() error
}

// SocketURL turns the API base URL into the gateway socket URL.
func SocketURL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api url %q has no host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + WebsocketPath
	return u.String(), nil
}

// Dial opens the socket, carrying the access token in the subprotocol list.
// A nil dialer uses a copy of websocket.DefaultDialer.
func Dial(ctx context.Context, ep Endpoint, dialer *websocket.Dialer) (Conn, error) {
	socketURL, err := SocketURL(ep.APIURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	if !auth.ValidSubprotocolToken(ep.AccessToken) {
		return nil, fmt.Errorf("%w: access token cannot be sent as a subprotocol", ErrDial)
	}

	d := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	if dialer != nil {
		d = *dialer
	}
	d.Subprotocols = auth.Subprotocols(ep.AccessToken)

	conn, res, err := d.DialContext(ctx, socketURL, nil)
	if err != nil {
		if res != nil && res.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}

	if conn.Subprotocol() != auth.BearerSubprotocol {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w: gateway selected %q", ErrDial, auth.ErrHandshake, conn.Subprotocol())
	}

	conn.SetReadLimit(defaultMaxMessageSize)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Send(frame dto.OutboundFrame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
