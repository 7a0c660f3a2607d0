package websocket

import "time"

// Message defines the structure for websocket messages.
type Message struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

// NewMessage builds a message of the given type.
func NewMessage(msgType string, payload any) Message {
	return Message{Type: msgType, Payload: payload, SentAt: time.Now().UTC()}
}
