package router

import (
	"strings"

	"pandacare-chat/internal/api"
	"pandacare-chat/internal/api/endpoints"
	"pandacare-chat/internal/api/middleware"

	"github.com/go-chi/chi/v5"
)

// ChatRoutes mounts the page host under prefix. The page and the token
// route load the session and check its tokens first.
func ChatRoutes(prefix string, cfg endpoints.ChatConfig, authCfg middleware.AuthConfig) api.RouteRegistrar {
	return func(r chi.Router, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		chatEndpoints := endpoints.NewChatEndpoints(cfg)
		if authCfg.Logger == nil {
			authCfg.Logger = s.Logger()
		}
		sessionMiddleware := []middleware.Middleware{
			middleware.LoadSession(authCfg.Store, s.Logger()),
			middleware.Authenticate(authCfg),
		}

		r.HandleFunc(base+"/", s.MakeHTTPHandleFunc(chatEndpoints.RenderChat, sessionMiddleware...))
		r.HandleFunc(base+"/get-api-url/", s.MakeHTTPHandleFunc(chatEndpoints.APIURL))
		r.HandleFunc(base+"/get-access-token/", s.MakeHTTPHandleFunc(chatEndpoints.AccessToken, sessionMiddleware...))
		r.HandleFunc(base+"/session/", s.MakeHTTPHandleFunc(chatEndpoints.Session, middleware.LoadSession(authCfg.Store, s.Logger())))
	}
}
