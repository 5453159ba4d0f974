package widget

import "sync"

// Session is the room the widget currently shows. The send path reads the
// recipient, the receive path reads the room id, SelectRoom writes both.
type Session struct {
	mu          sync.RWMutex
	roomID      string
	recipientID *string
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Select(roomID string, recipientID *string) {
	var recipient *string
	if recipientID != nil {
		v := *recipientID
		recipient = &v
	}

	s.mu.Lock()
	s.roomID = roomID
	s.recipientID = recipient
	s.mu.Unlock()
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// RecipientID returns a copy of the selected recipient, nil before any
// room has been selected.
func (s *Session) RecipientID() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recipientID == nil {
		return nil
	}
	v := *s.recipientID
	return &v
}

// IsCurrent reports whether roomID is the selected room. No room is selected
// until the first Select, so nothing matches before then.
func (s *Session) IsCurrent(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID != "" && s.roomID == roomID
}

// Input is the message box of the chat form.
type Input struct {
	mu    sync.Mutex
	value string
}

func (i *Input) Set(value string) {
	i.mu.Lock()
	i.value = value
	i.mu.Unlock()
}

func (i *Input) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

func (i *Input) Clear() {
	i.Set("")
}
