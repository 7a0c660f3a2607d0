package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// userMessage is a message addressed to every connection of one user.
type userMessage struct {
	userID  string
	message []byte
}

// Hub maintains the set of active clients and routes messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages for the clients of a single user.
	direct chan userMessage

	// A map of user IDs to the set of that user's clients.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		direct:        make(chan userMessage, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.UserID)
			log.Debug().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Debug().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case m := <-h.direct:
			for client := range h.subscriptions[m.userID] {
				h.send(client, m.message)
			}
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Attach registers client. It reports false once the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters client. It is a no-op once the hub has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// BroadcastTo queues a message for all clients of userID.
func (h *Hub) BroadcastTo(userID string, message []byte) {
	select {
	case h.direct <- userMessage{userID: userID, message: message}:
	case <-h.done:
	}
}

// NotifyUser encodes a typed message and queues it for userID.
func (h *Hub) NotifyUser(userID, msgType string, payload any) {
	data, err := json.Marshal(NewMessage(msgType, payload))
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to encode websocket message")
		return
	}
	h.BroadcastTo(userID, data)
}

// send delivers without blocking; a client that cannot keep up is dropped.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, userID string) {
	if h.subscriptions[userID] == nil {
		h.subscriptions[userID] = make(map[*Client]bool)
	}
	h.subscriptions[userID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
