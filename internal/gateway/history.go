package gateway

import (
	"sort"
	"sync"

	"pandacare-chat/internal/dto"
)

const DefaultHistoryLimit = 100

// History keeps the most recent messages of every room in memory.
type History struct {
	mu    sync.RWMutex
	limit int
	rooms map[string]*roomLog
}

type roomLog struct {
	participants [2]string
	messages     []dto.Message
	updated      int64
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit: limit,
		rooms: make(map[string]*roomLog),
	}
}

func (h *History) Record(env *Envelope, delivered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[env.RoomID]
	if !ok {
		room = &roomLog{participants: [2]string{env.SenderID, env.RecipientID}}
		h.rooms[env.RoomID] = room
	}

	room.messages = append(room.messages, env.Message(delivered))
	if over := len(room.messages) - h.limit; over > 0 {
		room.messages = append(room.messages[:0:0], room.messages[over:]...)
	}
	if env.Timestamp > room.updated {
		room.updated = env.Timestamp
	}
	setRooms(len(h.rooms))
}

// Rooms returns the rooms userID takes part in, most recently active first.
func (h *History) Rooms(userID string) []dto.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()

	type entry struct {
		room    dto.Room
		updated int64
	}
	var entries []entry
	for id, room := range h.rooms {
		if room.participants[0] != userID && room.participants[1] != userID {
			continue
		}
		messages := make([]dto.Message, len(room.messages))
		copy(messages, room.messages)
		entries = append(entries, entry{room: dto.Room{RoomID: id, Messages: messages}, updated: room.updated})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].updated != entries[j].updated {
			return entries[i].updated > entries[j].updated
		}
		return entries[i].room.RoomID < entries[j].room.RoomID
	})

	rooms := make([]dto.Room, 0, len(entries))
	for _, e := range entries {
		rooms = append(rooms, e.room)
	}
	return rooms
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
