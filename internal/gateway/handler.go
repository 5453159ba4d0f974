package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/dto"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultPublishTimeout = 5 * time.Second

var (
	ErrUnauthorized = errors.New("gateway: unauthorized")
	ErrInvalidFrame = errors.New("gateway: invalid frame")
	ErrNoRecipient  = errors.New("gateway: frame has no recipient")
	ErrEmptyContent = errors.New("gateway: empty content")
)

type Config struct {
	Hub          *Hub
	Publisher    Publisher
	Verifier     *auth.Verifier
	Logger       *zerolog.Logger
	PingInterval time.Duration
	CheckOrigin  func(r *http.Request) bool
	Now          func() time.Time
}

type Handler struct {
	hub          *Hub
	publisher    Publisher
	verifier     *auth.Verifier
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

func NewHandler(cfg Config) *Handler {
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NewLocalPublisher(cfg.Hub)
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "gateway").Logger()
	}

	return &Handler{
		hub:       cfg.Hub,
		publisher: publisher,
		verifier:  cfg.Verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{auth.BearerSubprotocol},
			CheckOrigin:     checkOrigin,
		},
		pingInterval: ping,
		now:          now,
		log:          log,
	}
}

// Authenticate checks the handshake subprotocols and returns the user id of
// the token they carry.
func (h *Handler) Authenticate(r *http.Request) (string, error) {
	token, err := auth.TokenFromSubprotocols(websocket.Subprotocols(r))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return h.verify(token)
}

// AuthenticateBearer does the same for an Authorization: Bearer header.
func (h *Handler) AuthenticateBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	return h.verify(strings.TrimSpace(token))
}

func (h *Handler) verify(token string) (string, error) {
	claims, err := h.verifier.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims.UserID, nil
}

// Join upgrades the request and attaches the socket to the hub. The caller
// must have authenticated userID.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	connID := uuid.NewString()
	cl := &Client{
		Conn:         conn,
		Message:      make(chan *dto.InboundFrame, defaultSendBufferSize),
		ID:           connID,
		UserID:       userID,
		pingInterval: h.pingInterval,
		done:         make(chan struct{}),
		log:          h.log.With().Str("userID", userID).Str("connID", connID).Logger(),
	}

	if err := h.hub.register(r.Context(), cl); err != nil {
		cl.close()
		return fmt.Errorf("gateway: register client: %w", err)
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub, func(data []byte) {
		if err := h.HandleFrame(context.Background(), userID, data); err != nil {
			cl.log.Info().Err(err).Msg("frame dropped")
		}
	})
	cl.log.Debug().Msg("client connected")
	return nil
}

// HandleFrame validates a client frame from senderID and publishes it.
func (h *Handler) HandleFrame(ctx context.Context, senderID string, data []byte) error {
	var frame dto.OutboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		incRejected("malformed")
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if frame.MessageType != dto.MessageTypeMessage {
		incRejected("message_type")
		return fmt.Errorf("%w: unsupported message_type %q", ErrInvalidFrame, frame.MessageType)
	}
	if frame.RecipientID == nil || strings.TrimSpace(*frame.RecipientID) == "" {
		incRejected("recipient")
		return ErrNoRecipient
	}
	content := SanitizeContent(strings.TrimSpace(frame.Content))
	if content == "" {
		incRejected("empty")
		return ErrEmptyContent
	}

	recipientID := strings.TrimSpace(*frame.RecipientID)
	env := &Envelope{
		ID:          uuid.NewString(),
		RoomID:      RoomID(senderID, recipientID),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   h.now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return h.publisher.Publish(ctx, env)
}

func (h *Handler) Rooms(userID string) []dto.Room {
	return h.hub.History().Rooms(userID)
}
