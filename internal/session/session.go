package session

import (
	"context"
	"errors"
	"time"
)

const CookieName = "sessionid"

const DefaultTTL = 14 * 24 * time.Hour

var ErrNotFound = errors.New("session: not found")

// Session is the server-side state behind a browser session. The token pair
// is issued by the auth service and rotated here on refresh.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Persistent reports whether the session has a backing record to save to.
func (s *Session) Persistent() bool {
	return s != nil && s.ID != ""
}

func (s *Session) ClearTokens() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.UserID = ""
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext never returns nil; requests without a session get an empty
// anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}
