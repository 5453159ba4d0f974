package router

import (
	"pandacare-chat/internal/api"
	"pandacare-chat/internal/api/endpoints"
	"pandacare-chat/internal/chatapi"
	"pandacare-chat/internal/gateway"
	"pandacare-chat/internal/widget"

	"github.com/go-chi/chi/v5"
)

func GatewayRoutes(handler *gateway.Handler) api.RouteRegistrar {
	return func(r chi.Router, s *api.APIServer) {
		gatewayEndpoints := endpoints.NewGatewayEndpoints(handler)
		r.HandleFunc(widget.WebsocketPath, s.MakeHTTPHandleFunc(gatewayEndpoints.Websocket))
		r.HandleFunc(chatapi.RoomsPath, s.MakeHTTPHandleFunc(gatewayEndpoints.Rooms))
	}
}
