package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"pandacare-chat/internal/dto"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var ErrMalformedFrame = errors.New("widget: malformed frame")

type Config struct {
	Conn    Conn
	View    View
	Session *Session
	Logger  *zerolog.Logger
}

// Widget ties the chat form, the socket and the message container together.
type Widget struct {
	conn    Conn
	view    View
	session *Session
	input   *Input
	log     zerolog.Logger

	// renderMu serialises container updates between the receive loop and
	// SelectRoom so a frame for the old room never lands after the clear.
	renderMu sync.Mutex
}

func New(cfg Config) *Widget {
	s := cfg.Session
	if s == nil {
		s = NewSession()
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "widget").Logger()
	}
	return &Widget{
		conn:    cfg.Conn,
		view:    cfg.View,
		session: s,
		input:   &Input{},
		log:     log,
	}
}

type OpenConfig struct {
	PageURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	View       View
	Logger     *zerolog.Logger
}

// Open fetches the endpoint from the page host and connects to it.
func Open(ctx context.Context, cfg OpenConfig) (*Widget, Endpoint, error) {
	ep, err := NewConfigClient(cfg.PageURL, cfg.HTTPClient).FetchEndpoint(ctx)
	if err != nil {
		return nil, Endpoint{}, err
	}
	conn, err := Dial(ctx, ep, cfg.Dialer)
	if err != nil {
		return nil, Endpoint{}, err
	}
	return New(Config{Conn: conn, View: cfg.View, Logger: cfg.Logger}), ep, nil
}

func (w *Widget) Input() *Input {
	return w.input
}

func (w *Widget) Session() *Session {
	return w.session
}

// Submit sends the trimmed input to the selected recipient and clears the
// input. Blank input sends nothing and leaves the input untouched.
func (w *Widget) Submit() (bool, error) {
	content := strings.TrimSpace(w.input.Value())
	if content == "" {
		return false, nil
	}

	frame := dto.OutboundFrame{
		MessageType: dto.MessageTypeMessage,
		Content:     content,
		RecipientID: w.session.RecipientID(),
	}
	if err := w.conn.Send(frame); err != nil {
		return false, fmt.Errorf("widget: send: %w", err)
	}
	w.input.Clear()
	return true, nil
}

// HandleFrame renders an inbound frame if it belongs to the selected room.
func (w *Widget) HandleFrame(data []byte) (bool, error) {
	var frame dto.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	w.renderMu.Lock()
	defer w.renderMu.Unlock()
	if !w.session.IsCurrent(frame.RoomID) {
		return false, nil
	}
	w.renderMessages([]dto.Message{frame.Message()})
	return true, nil
}

// SelectRoom switches the widget to roomID and replaces the container
// contents with messages.
func (w *Widget) SelectRoom(roomID string, recipientID *string, messages []dto.Message) {
	w.renderMu.Lock()
	defer w.renderMu.Unlock()
	w.session.Select(roomID, recipientID)
	w.view.Clear()
	w.renderMessages(messages)
}

// renderMessages must be called with renderMu held.
func (w *Widget) renderMessages(messages []dto.Message) {
	recipient := w.session.RecipientID()
	for _, m := range messages {
		w.view.Append(newElement(m, recipient))
	}
	w.view.ScrollToBottom()
}

func newElement(m dto.Message, recipientID *string) Element {
	classes := make([]string, 0, len(baseClasses)+len(outgoingClasses))
	classes = append(classes, baseClasses...)

	if recipientID != nil && m.SenderID == *recipientID {
		return Element{Text: m.Content, Classes: append(classes, outgoingClasses...), Align: AlignEnd}
	}
	return Element{Text: m.Content, Classes: append(classes, incomingClasses...), Align: AlignStart}
}

// Run reads frames until the connection closes or ctx is done. Malformed
// frames are logged and skipped.
func (w *Widget) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.conn.Close()
		case <-done:
		}
	}()

	for {
		data, err := w.conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				w.log.Info().Msg("connection closed by gateway")
				return nil
			}
			return fmt.Errorf("widget: receive: %w", err)
		}

		rendered, err := w.HandleFrame(data)
		if err != nil {
			w.log.Warn().Err(err).Msg("skipping frame")
			continue
		}
		w.log.Debug().Bool("rendered", rendered).Msg("frame received")
	}
}

func (w *Widget) Close() error {
	return w.conn.Close()
}
