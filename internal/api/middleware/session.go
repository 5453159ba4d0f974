package middleware

import (
	"errors"
	"net/http"

	"pandacare-chat/internal/session"

	"github.com/rs/zerolog"
)

// LoadSession puts the session named by the session cookie on the request
// context. Unknown or missing cookies give an empty session.
func LoadSession(store session.Store, logger *zerolog.Logger) Middleware {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s := &session.Session{}

			if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
				loaded, err := store.Get(r.Context(), cookie.Value)
				switch {
				case err == nil:
					s = loaded
				case errors.Is(err, session.ErrNotFound):
				default:
					log.Error().Err(err).Msg("session lookup failed")
				}
			}

			next(w, r.WithContext(session.WithSession(r.Context(), s)))
		}
	}
}
