package endpoints

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/chatapi"
	"pandacare-chat/internal/dto"
	"pandacare-chat/internal/session"

	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	msgAuthRequired   = "Authentication required"
	msgRoomsFailed    = "Failed to fetch chat rooms"
	msgInvalidRooms   = "Invalid response from chat API"
	maxSessionPayload = 16 << 10
)

// RoomLister fetches the chat rooms visible to the holder of token.
type RoomLister interface {
	ListRooms(ctx context.Context, token string) ([]dto.Room, error)
}

type ChatEndpoints interface {
	RenderChat(http.ResponseWriter, *http.Request) error
	APIURL(http.ResponseWriter, *http.Request) error
	AccessToken(http.ResponseWriter, *http.Request) error
	Session(http.ResponseWriter, *http.Request) error
}

type ChatConfig struct {
	Rooms        RoomLister
	Store        session.Store
	Verifier     *auth.Verifier
	PublicAPIURL string
	SessionTTL   time.Duration
}

type chatEndpoints struct {
	rooms        RoomLister
	store        session.Store
	verifier     *auth.Verifier
	publicAPIURL string
	sessionTTL   time.Duration
}

func NewChatEndpoints(cfg ChatConfig) ChatEndpoints {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &chatEndpoints{
		rooms:        cfg.Rooms,
		store:        cfg.Store,
		verifier:     cfg.Verifier,
		publicAPIURL: cfg.PublicAPIURL,
		sessionTTL:   ttl,
	}
}

type chatRoomView struct {
	RoomID      string        `json:"room_id"`
	RecipientID string        `json:"recipient_id"`
	Messages    []dto.Message `json:"messages"`
}

type chatPage struct {
	UserID   string
	Rooms    []chatRoomView
	RoomData []chatRoomView
}

type errorPage struct {
	Error string
}

func (h *chatEndpoints) RenderChat(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.renderChat,
	})
}

func (h *chatEndpoints) renderChat(w http.ResponseWriter, r *http.Request) error {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		return renderPage(w, http.StatusUnauthorized, "error.html", errorPage{Error: msgAuthRequired})
	}

	rooms, err := h.rooms.ListRooms(r.Context(), s.AccessToken)
	switch {
	case errors.Is(err, chatapi.ErrInvalidResponse):
		return renderPage(w, http.StatusBadGateway, "error.html", errorPage{Error: msgInvalidRooms})
	case err != nil:
		return renderPage(w, http.StatusBadGateway, "error.html", errorPage{Error: msgRoomsFailed})
	}

	views := make([]chatRoomView, 0, len(rooms))
	for _, room := range rooms {
		messages := room.Messages
		if messages == nil {
			messages = []dto.Message{}
		}
		views = append(views, chatRoomView{
			RoomID:      room.RoomID,
			RecipientID: room.Counterpart(s.UserID),
			Messages:    messages,
		})
	}
	return renderPage(w, http.StatusOK, "chat.html", chatPage{UserID: s.UserID, Rooms: views, RoomData: views})
}

func renderPage(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (h *chatEndpoints) APIURL(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return WriteText(w, http.StatusOK, h.publicAPIURL)
		},
	})
}

func (h *chatEndpoints) AccessToken(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.accessToken,
	})
}

func (h *chatEndpoints) accessToken(w http.ResponseWriter, r *http.Request) error {
	s := session.FromContext(r.Context())
	if !s.Authenticated() {
		return WriteText(w, http.StatusUnauthorized, msgAuthRequired)
	}
	w.Header().Set("Cache-Control", "no-store")
	return WriteText(w, http.StatusOK, s.AccessToken)
}

// Session hands a token pair from the auth service to a new browser session
// (POST) or ends the current one (DELETE).
func (h *chatEndpoints) Session(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost:   h.createSession,
		http.MethodDelete: h.deleteSession,
	})
}

type sessionResponse struct {
	UserID string `json:"user_id"`
}

func (h *chatEndpoints) createSession(w http.ResponseWriter, r *http.Request) error {
	var pair auth.TokenPair
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSessionPayload)).Decode(&pair); err != nil {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid request body", ErrorLog: err}
	}

	claims, err := h.verifier.Verify(pair.Access)
	if err != nil && !(errors.Is(err, auth.ErrTokenExpired) && pair.Refresh != "") {
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Invalid access token", ErrorLog: err}
	}

	old := session.FromContext(r.Context())
	s := &session.Session{
		ID:           uuid.NewString(),
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		UserID:       claims.UserID,
	}
	if err := h.store.Save(r.Context(), s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if old.Persistent() {
		if err := h.store.Delete(r.Context(), old.ID); err != nil {
			return fmt.Errorf("delete replaced session: %w", err)
		}
	}

	http.SetCookie(w, h.sessionCookie(r, s.ID, int(h.sessionTTL.Seconds())))
	return WriteJSON(w, http.StatusCreated, sessionResponse{UserID: s.UserID})
}

func (h *chatEndpoints) deleteSession(w http.ResponseWriter, r *http.Request) error {
	s := session.FromContext(r.Context())
	if s.Persistent() {
		if err := h.store.Delete(r.Context(), s.ID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	http.SetCookie(w, h.sessionCookie(r, "", -1))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *chatEndpoints) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
