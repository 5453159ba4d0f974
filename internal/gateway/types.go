package gateway

import (
	"encoding/base64"
	"sort"

	"pandacare-chat/internal/dto"

	"github.com/google/uuid"
)

var roomNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://pandacare.chat/rooms"))

// RoomID is the id of the one-to-one room between a and b. It does not
// depend on the argument order.
func RoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	id := uuid.NewSHA1(roomNamespace, []byte(pair[0]+"\x00"+pair[1]))
	return base64.StdEncoding.EncodeToString(id[:])
}

// Envelope is one accepted message on its way to the hub. It is what travels
// over Redis between gateway instances.
type Envelope struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
}

func (e *Envelope) Frame() *dto.InboundFrame {
	return &dto.InboundFrame{
		RoomID:   e.RoomID,
		SenderID: e.SenderID,
		Content:  e.Content,
	}
}

func (e *Envelope) Message(delivered bool) dto.Message {
	return dto.Message{
		ID:          e.ID,
		Content:     e.Content,
		Delivered:   delivered,
		RecipientID: e.RecipientID,
		SenderID:    e.SenderID,
		Timestamp:   e.Timestamp,
		LastUpdated: e.Timestamp,
	}
}
