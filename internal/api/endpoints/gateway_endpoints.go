package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"pandacare-chat/internal/chatapi"
	"pandacare-chat/internal/gateway"
)

type GatewayEndpoints interface {
	Websocket(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type gatewayEndpoints struct {
	handler *gateway.Handler
}

func NewGatewayEndpoints(handler *gateway.Handler) GatewayEndpoints {
	return &gatewayEndpoints{handler: handler}
}

func (h *gatewayEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.websocket,
	})
}

func (h *gatewayEndpoints) websocket(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.handler.Authenticate(r)
	if err != nil {
		return unauthorized(err)
	}
	return h.handler.Join(w, r, userID)
}

func (h *gatewayEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.rooms,
	})
}

func (h *gatewayEndpoints) rooms(w http.ResponseWriter, r *http.Request) error {
	userID, err := h.handler.AuthenticateBearer(r)
	if err != nil {
		return unauthorized(err)
	}
	return WriteJSON(w, http.StatusOK, chatapi.EncodeRooms(h.handler.Rooms(userID)))
}

func unauthorized(err error) error {
	if errors.Is(err, gateway.ErrUnauthorized) {
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
	}
	return fmt.Errorf("authenticate: %w", err)
}
