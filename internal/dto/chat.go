package dto

// MessageTypeMessage is the only message_type the gateway accepts from clients.
const MessageTypeMessage = "message"

// OutboundFrame is what a client writes to the gateway.
// RecipientID is null until a room has been selected.
type OutboundFrame struct {
	MessageType string  `json:"message_type"`
	Content     string  `json:"content"`
	RecipientID *string `json:"recipient_id"`
}

// InboundFrame is what the gateway delivers to every connection of the
// sender and the recipient.
type InboundFrame struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

func (f InboundFrame) Message() Message {
	return Message{
		Content:  f.Content,
		SenderID: f.SenderID,
	}
}

// Message is one stored chat message as returned by the room history API.
// Timestamps are unix milliseconds.
type Message struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Delivered   bool   `json:"delivered"`
	RecipientID string `json:"recipient_id"`
	SenderID    string `json:"sender_id"`
	Timestamp   int64  `json:"timestamp"`
	LastUpdated int64  `json:"last_updated"`
}

type Room struct {
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
}

// Counterpart returns the participant of the room that is not userID,
// or "" when the history does not name one.
func (r Room) Counterpart(userID string) string {
	for _, m := range r.Messages {
		if m.SenderID != "" && m.SenderID != userID {
			return m.SenderID
		}
		if m.RecipientID != "" && m.RecipientID != userID {
			return m.RecipientID
		}
	}
	return ""
}
