package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/session"
)

var testSecret = []byte("middleware-test-secret")

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func newMemoryStore(sessions ...session.Session) *memoryStore {
	m := &memoryStore{sessions: make(map[string]session.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memoryStore) Get(ctx context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (m *memoryStore) Save(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type fakeRefresher struct {
	pair  auth.TokenPair
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	f.calls++
	return f.pair, f.err
}

func token(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.CreateToken(testSecret, userID, time.Now().Add(ttl))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return tok
}

// serve runs LoadSession and Authenticate and returns the session the
// handler saw.
func serve(t *testing.T, store *memoryStore, refresher auth.Refresher, cookie string) *session.Session {
	t.Helper()
	var seen *session.Session
	h := Chain(func(w http.ResponseWriter, r *http.Request) {
		seen = session.FromContext(r.Context())
	},
		LoadSession(store, nil),
		Authenticate(AuthConfig{
			Verifier:  auth.NewVerifier(testSecret, nil),
			Refresher: refresher,
			Store:     store,
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/chat/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	h(httptest.NewRecorder(), req)
	if seen == nil {
		t.Fatal("handler did not run")
	}
	return seen
}

func TestAuthenticateWithoutSessionPassesThrough(t *testing.T) {
	s := serve(t, newMemoryStore(), nil, "")
	if s.Authenticated() || s.Persistent() {
		t.Fatalf("expected anonymous session, got %+v", s)
	}

	s = serve(t, newMemoryStore(), nil, "unknown")
	if s.Authenticated() {
		t.Fatalf("expected anonymous session for unknown cookie, got %+v", s)
	}
}

func TestAuthenticateValidTokenSetsUserID(t *testing.T) {
	store := newMemoryStore(session.Session{ID: "s1", AccessToken: token(t, "alice", time.Hour)})

	s := serve(t, store, nil, "s1")
	if s.UserID != "alice" {
		t.Fatalf("expected user alice, got %+v", s)
	}
	saved, _ := store.Get(context.Background(), "s1")
	if saved.UserID != "alice" {
		t.Fatalf("expected user id to be saved, got %+v", saved)
	}
}

func TestAuthenticateRefreshesExpiredToken(t *testing.T) {
	store := newMemoryStore(session.Session{ID: "s1", AccessToken: token(t, "alice", -time.Minute), RefreshToken: "r1"})
	fresh := token(t, "alice", time.Hour)
	refresher := &fakeRefresher{pair: auth.TokenPair{Access: fresh, Refresh: "r2"}}

	s := serve(t, store, refresher, "s1")
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls)
	}
	if s.AccessToken != fresh || s.RefreshToken != "r2" || s.UserID != "alice" {
		t.Fatalf("unexpected session %+v", s)
	}
	saved, _ := store.Get(context.Background(), "s1")
	if saved.AccessToken != fresh || saved.RefreshToken != "r2" {
		t.Fatalf("expected rotated tokens to be saved, got %+v", saved)
	}
}

func TestAuthenticateFailedRefreshDropsTokens(t *testing.T) {
	store := newMemoryStore(session.Session{ID: "s1", AccessToken: token(t, "alice", -time.Minute), RefreshToken: "r1"})
	refresher := &fakeRefresher{err: auth.ErrRefreshRejected}

	s := serve(t, store, refresher, "s1")
	if s.Authenticated() || s.RefreshToken != "" {
		t.Fatalf("expected tokens to be dropped, got %+v", s)
	}
	saved, _ := store.Get(context.Background(), "s1")
	if saved.AccessToken != "" {
		t.Fatalf("expected cleared session to be saved, got %+v", saved)
	}
}

func TestAuthenticateInvalidTokenDropsTokens(t *testing.T) {
	store := newMemoryStore(session.Session{ID: "s1", AccessToken: "garbage", RefreshToken: "r1"})
	refresher := &fakeRefresher{}

	s := serve(t, store, refresher, "s1")
	if s.Authenticated() {
		t.Fatalf("expected tokens to be dropped, got %+v", s)
	}
	if refresher.calls != 0 {
		t.Fatal("invalid tokens must not be refreshed")
	}
}

type failingStore struct{ memoryStore }

func (f *failingStore) Get(ctx context.Context, id string) (*session.Session, error) {
	return nil, errors.New("backend down")
}

func TestLoadSessionStoreFailureIsAnonymous(t *testing.T) {
	var seen *session.Session
	h := LoadSession(&failingStore{}, nil)(func(w http.ResponseWriter, r *http.Request) {
		seen = session.FromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s1"})
	h(httptest.NewRecorder(), req)

	if seen == nil || seen.Authenticated() {
		t.Fatalf("expected anonymous session, got %+v", seen)
	}
}
