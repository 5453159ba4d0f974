package router

import (
	"pandacare-chat/internal/api"
	"pandacare-chat/internal/api/endpoints"

	"github.com/go-chi/chi/v5"
)

func UtilsRoutes(prefix string, checks map[string]endpoints.HealthCheck) api.RouteRegistrar {
	return func(r chi.Router, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints(checks)
		r.HandleFunc(prefix+"/health", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}
