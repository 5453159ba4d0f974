package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pandacare-chat/internal/dto"

	"github.com/davecgh/go-spew/spew"
)

func newTestClient(userID string, buffer int) *Client {
	return &Client{
		Message: make(chan *dto.InboundFrame, buffer),
		ID:      userID + "-conn",
		UserID:  userID,
		done:    make(chan struct{}),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(NewHistory(3), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, cl *Client) *dto.InboundFrame {
	t.Helper()
	select {
	case f, ok := <-cl.Message:
		if !ok {
			t.Fatalf("channel of %s closed", cl.UserID)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame for %s", cl.UserID)
	}
	return nil
}

func TestRoomIDIsSymmetric(t *testing.T) {
	if RoomID("alice", "bob") != RoomID("bob", "alice") {
		t.Fatal("room id depends on argument order")
	}
	if RoomID("alice", "bob") == RoomID("alice", "carol") {
		t.Fatal("different pairs share a room id")
	}
}

func TestHubDeliversToSenderAndRecipient(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	alice := newTestClient("alice", 4)
	bob := newTestClient("bob", 4)
	carol := newTestClient("carol", 4)
	for _, cl := range []*Client{alice, bob, carol} {
		if err := hub.register(ctx, cl); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	env := &Envelope{ID: "m1", RoomID: RoomID("alice", "bob"), SenderID: "alice", RecipientID: "bob", Content: "hi", Timestamp: 10}
	if err := hub.Deliver(ctx, env); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, cl := range []*Client{alice, bob} {
		f := receive(t, cl)
		if f.RoomID != env.RoomID || f.SenderID != "alice" || f.Content != "hi" {
			t.Fatalf("unexpected frame for %s: %s", cl.UserID, spew.Sdump(f))
		}
	}

	// A second delivery acts as a barrier for the first broadcast.
	if err := hub.Deliver(ctx, &Envelope{RoomID: "other", SenderID: "x", RecipientID: "y"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(carol.Message) != 0 {
		t.Fatal("bystander received a frame")
	}

	rooms := hub.History().Rooms("bob")
	if len(rooms) != 1 || len(rooms[0].Messages) != 1 || !rooms[0].Messages[0].Delivered {
		t.Fatalf("unexpected history %s", spew.Sdump(rooms))
	}
}

func TestHubDropsSlowConnection(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	slow := newTestClient("bob", 1)
	if err := hub.register(ctx, slow); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		env := &Envelope{RoomID: "r", SenderID: "alice", RecipientID: "bob", Content: fmt.Sprint(i)}
		if err := hub.Deliver(ctx, env); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	}
	// Barrier.
	if err := hub.Deliver(ctx, &Envelope{RoomID: "r2", SenderID: "x", RecipientID: "y"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if f := receive(t, slow); f.Content != "0" {
		t.Fatalf("unexpected first frame %s", spew.Sdump(f))
	}
	if _, ok := <-slow.Message; ok {
		t.Fatal("expected slow connection channel to be closed")
	}
}

func TestHubMarksUndeliveredMessages(t *testing.T) {
	hub, _ := startHub(t)

	env := &Envelope{ID: "m1", RoomID: RoomID("alice", "bob"), SenderID: "alice", RecipientID: "bob", Content: "anyone?"}
	if err := hub.Deliver(context.Background(), env); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := hub.Deliver(context.Background(), &Envelope{RoomID: "r2", SenderID: "x", RecipientID: "y"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	rooms := hub.History().Rooms("alice")
	if len(rooms) != 1 || rooms[0].Messages[0].Delivered {
		t.Fatalf("expected one undelivered message, got %s", spew.Sdump(rooms))
	}
}

func TestHubStopped(t *testing.T) {
	hub, cancel := startHub(t)
	cl := newTestClient("alice", 1)
	if err := hub.register(context.Background(), cl); err != nil {
		t.Fatalf("register: %v", err)
	}
	cancel()

	if _, ok := <-cl.Message; ok {
		t.Fatal("expected connection to be closed when the hub stops")
	}
	if err := hub.Deliver(context.Background(), &Envelope{}); err != ErrHubStopped {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
}

func TestHistoryKeepsLatestMessagesPerRoom(t *testing.T) {
	h := NewHistory(2)
	for i := 1; i <= 3; i++ {
		h.Record(&Envelope{ID: fmt.Sprint(i), RoomID: "ab", SenderID: "a", RecipientID: "b", Timestamp: int64(i)}, true)
	}
	h.Record(&Envelope{ID: "c1", RoomID: "ac", SenderID: "c", RecipientID: "a", Timestamp: 10}, false)
	h.Record(&Envelope{ID: "d1", RoomID: "cd", SenderID: "c", RecipientID: "d", Timestamp: 11}, false)

	rooms := h.Rooms("a")
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms for a, got %s", spew.Sdump(rooms))
	}
	if rooms[0].RoomID != "ac" {
		t.Fatalf("expected most recent room first, got %q", rooms[0].RoomID)
	}
	ab := rooms[1]
	if len(ab.Messages) != 2 || ab.Messages[0].ID != "2" || ab.Messages[1].ID != "3" {
		t.Fatalf("expected the last two messages, got %s", spew.Sdump(ab.Messages))
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 rooms, got %d", h.Len())
	}
}
