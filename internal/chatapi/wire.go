package chatapi

import (
	"encoding/json"
	"fmt"
	"strconv"

	"pandacare-chat/internal/dto"
)

// The room history endpoint speaks MongoDB extended JSON:
//
//	[
//	  [{"$binary": {"base64": "<room id>", "subType": "04"}},
//	   [{"_id": {"$oid": "..."}, "content": "...", "delivered": true,
//	     "recipient_id": "...", "sender_id": "...",
//	     "timestamp": {"$date": {"$numberLong": "1700000000000"}},
//	     "last_updated": {"$date": {"$numberLong": "1700000000000"}}}]],
//	  ...
//	]

const uuidSubType = "04"

type binaryValue struct {
	Binary struct {
		Base64  string `json:"base64"`
		SubType string `json:"subType"`
	} `json:"$binary"`
}

type objectID struct {
	OID string `json:"$oid"`
}

type dateValue struct {
	Date struct {
		NumberLong string `json:"$numberLong"`
	} `json:"$date"`
}

func (d dateValue) millis() (int64, error) {
	return strconv.ParseInt(d.Date.NumberLong, 10, 64)
}

func newDateValue(ms int64) dateValue {
	var d dateValue
	d.Date.NumberLong = strconv.FormatInt(ms, 10)
	return d
}

type wireMessage struct {
	ID          objectID  `json:"_id"`
	Content     string    `json:"content"`
	Delivered   bool      `json:"delivered"`
	RecipientID string    `json:"recipient_id"`
	SenderID    string    `json:"sender_id"`
	Timestamp   dateValue `json:"timestamp"`
	LastUpdated dateValue `json:"last_updated"`
}

// ProcessRoomData decodes the extended-JSON room history into plain rooms.
func ProcessRoomData(raw []byte) ([]dto.Room, error) {
	var entries [][]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	rooms := make([]dto.Room, 0, len(entries))
	for i, entry := range entries {
		if len(entry) != 2 {
			return nil, fmt.Errorf("%w: room %d has %d elements", ErrInvalidResponse, i, len(entry))
		}

		var id binaryValue
		if err := json.Unmarshal(entry[0], &id); err != nil {
			return nil, fmt.Errorf("%w: room %d id: %v", ErrInvalidResponse, i, err)
		}
		if id.Binary.Base64 == "" {
			return nil, fmt.Errorf("%w: room %d has no id", ErrInvalidResponse, i)
		}

		var wire []wireMessage
		if err := json.Unmarshal(entry[1], &wire); err != nil {
			return nil, fmt.Errorf("%w: room %d messages: %v", ErrInvalidResponse, i, err)
		}

		messages := make([]dto.Message, 0, len(wire))
		for j, m := range wire {
			ts, err := m.Timestamp.millis()
			if err != nil {
				return nil, fmt.Errorf("%w: room %d message %d timestamp: %v", ErrInvalidResponse, i, j, err)
			}
			updated, err := m.LastUpdated.millis()
			if err != nil {
				return nil, fmt.Errorf("%w: room %d message %d last_updated: %v", ErrInvalidResponse, i, j, err)
			}
			messages = append(messages, dto.Message{
				ID:          m.ID.OID,
				Content:     m.Content,
				Delivered:   m.Delivered,
				RecipientID: m.RecipientID,
				SenderID:    m.SenderID,
				Timestamp:   ts,
				LastUpdated: updated,
			})
		}

		rooms = append(rooms, dto.Room{RoomID: id.Binary.Base64, Messages: messages})
	}
	return rooms, nil
}

// EncodeRooms is the inverse of ProcessRoomData; the result marshals to the
// wire shape above.
func EncodeRooms(rooms []dto.Room) []any {
	out := make([]any, 0, len(rooms))
	for _, room := range rooms {
		var id binaryValue
		id.Binary.Base64 = room.RoomID
		id.Binary.SubType = uuidSubType

		messages := make([]wireMessage, 0, len(room.Messages))
		for _, m := range room.Messages {
			messages = append(messages, wireMessage{
				ID:          objectID{OID: m.ID},
				Content:     m.Content,
				Delivered:   m.Delivered,
				RecipientID: m.RecipientID,
				SenderID:    m.SenderID,
				Timestamp:   newDateValue(m.Timestamp),
				LastUpdated: newDateValue(m.LastUpdated),
			})
		}
		out = append(out, []any{id, messages})
	}
	return out
}
