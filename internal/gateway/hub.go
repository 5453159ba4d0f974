package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrHubStopped = errors.New("gateway: hub stopped")

// Hub owns the set of live connections. All changes to it go through the
// Run loop.
type Hub struct {
	clients map[string]map[*Client]struct{}
	history *History

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Envelope

	count chan chan int
	done  chan struct{}
	log   zerolog.Logger
}

func NewHub(history *History, logger *zerolog.Logger) *Hub {
	if history == nil {
		history = NewHistory(DefaultHistoryLimit)
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "hub").Logger()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		history:    history,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Envelope),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) History() *History {
	return h.history
}

// Run processes registrations and broadcasts until ctx is done. Live
// connections are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for userID, conns := range h.clients {
			for cl := range conns {
				h.drop(userID, cl)
			}
		}
		h.log.Debug().Msg("hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case cl := <-h.Register:
			conns, ok := h.clients[cl.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[cl.UserID] = conns
			}
			conns[cl] = struct{}{}
			incConnections()

		case cl := <-h.Unregister:
			if _, ok := h.clients[cl.UserID][cl]; ok {
				h.drop(cl.UserID, cl)
			}

		case env := <-h.Broadcast:
			h.broadcast(env)

		case reply := <-h.count:
			n := 0
			for _, conns := range h.clients {
				n += len(conns)
			}
			reply <- n
		}
	}
}

func (h *Hub) broadcast(env *Envelope) {
	delivered := len(h.clients[env.RecipientID]) > 0
	h.history.Record(env, delivered)

	frame := env.Frame()
	sent := 0
	targets := []string{env.SenderID}
	if env.RecipientID != env.SenderID {
		targets = append(targets, env.RecipientID)
	}
	for _, userID := range targets {
		for cl := range h.clients[userID] {
			select {
			case cl.Message <- frame:
				sent++
			default:
				h.log.Warn().Str("userID", userID).Str("connID", cl.ID).Msg("dropping slow connection")
				h.drop(userID, cl)
				incSlowDropped()
			}
		}
	}
	if sent > 0 {
		addDelivered(sent)
	}
}

func (h *Hub) drop(userID string, cl *Client) {
	conns := h.clients[userID]
	delete(conns, cl)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	close(cl.Message)
	decConnections()
}

func (h *Hub) register(ctx context.Context, cl *Client) error {
	select {
	case h.Register <- cl:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) unregister(cl *Client) {
	select {
	case h.Unregister <- cl:
	case <-h.done:
	}
}

// Deliver hands env to the Run loop.
func (h *Hub) Deliver(ctx context.Context, env *Envelope) error {
	select {
	case h.Broadcast <- env:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connections returns the number of live connections held by this hub.
func (h *Hub) Connections(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return <-reply, nil
}
