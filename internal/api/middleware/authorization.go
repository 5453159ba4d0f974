package middleware

import (
	"context"
	"errors"
	"net/http"

	"pandacare-chat/internal/auth"
	"pandacare-chat/internal/session"

	"github.com/rs/zerolog"
)

type AuthConfig struct {
	Verifier  *auth.Verifier
	Refresher auth.Refresher
	Store     session.Store
	Logger    *zerolog.Logger
}

// Authenticate checks the access token of the loaded session. A valid token
// records its user id; an expired one is refreshed once. When neither works
// the tokens are dropped and the request goes on unauthenticated, leaving
// the decision to the handler. It must run after LoadSession.
func Authenticate(cfg AuthConfig) Middleware {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "auth").Logger()
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s.AccessToken == "" {
				next(w, r)
				return
			}

			claims, err := cfg.Verifier.Verify(s.AccessToken)
			switch {
			case err == nil:
				if s.UserID != claims.UserID {
					s.UserID = claims.UserID
					save(r.Context(), cfg.Store, s, &log)
				}

			case errors.Is(err, auth.ErrTokenExpired):
				if !refresh(r.Context(), cfg, s, &log) {
					s.ClearTokens()
					save(r.Context(), cfg.Store, s, &log)
				}

			default:
				log.Info().Err(err).Msg("dropping invalid access token")
				s.ClearTokens()
				save(r.Context(), cfg.Store, s, &log)
			}

			next(w, r)
		}
	}
}

func refresh(ctx context.Context, cfg AuthConfig, s *session.Session, log *zerolog.Logger) bool {
	if s.RefreshToken == "" || cfg.Refresher == nil {
		return false
	}

	pair, err := cfg.Refresher.Refresh(ctx, s.RefreshToken)
	if err != nil {
		log.Info().Err(err).Msg("token refresh failed")
		return false
	}
	claims, err := cfg.Verifier.Verify(pair.Access)
	if err != nil {
		log.Warn().Err(err).Msg("refreshed access token does not verify")
		return false
	}

	s.AccessToken = pair.Access
	if pair.Refresh != "" {
		s.RefreshToken = pair.Refresh
	}
	s.UserID = claims.UserID
	save(ctx, cfg.Store, s, log)
	return true
}

func save(ctx context.Context, store session.Store, s *session.Session, log *zerolog.Logger) {
	if store == nil || !s.Persistent() {
		return
	}
	if err := store.Save(ctx, s); err != nil {
		log.Error().Err(err).Msg("session save failed")
	}
}
