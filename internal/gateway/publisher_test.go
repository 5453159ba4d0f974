package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"id":"m1","room_id":"r","sender_id":"alice","recipient_id":"bob","content":"hi","timestamp":5}`},
		{name: "not json", payload: "nope", wantErr: true},
		{name: "missing room", payload: `{"sender_id":"alice","recipient_id":"bob","content":"hi"}`, wantErr: true},
		{name: "missing sender", payload: `{"room_id":"r","recipient_id":"bob","content":"hi"}`, wantErr: true},
		{name: "missing recipient", payload: `{"room_id":"r","sender_id":"alice","content":"hi"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := decodeEnvelope([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", env)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.ID != "m1" || env.Content != "hi" || env.Timestamp != 5 {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func waitSubscribed(t *testing.T, mr *miniredis.Miniredis, channel string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(channel)[channel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no subscriber on %s", channel)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRedisPublisherPublishesEnvelope(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "test-channel")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewRedisPublisher(client, "test-channel", nil, nil)
	env := &Envelope{ID: "m1", RoomID: RoomID("alice", "bob"), SenderID: "alice", RecipientID: "bob", Content: "hi", Timestamp: 7}
	if err := pub.Publish(ctx, env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got != *env {
			t.Fatalf("unexpected envelope %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nothing published")
	}
}

func TestRedisPublisherDefaultsChannel(t *testing.T) {
	_, client := newRedis(t)
	if pub := NewRedisPublisher(client, "", nil, nil); pub.channel != DefaultChannel {
		t.Fatalf("expected %s, got %s", DefaultChannel, pub.channel)
	}
}

func TestRedisPublisherRunDeliversToHub(t *testing.T) {
	mr, client := newRedis(t)
	hub, _ := startHub(t)

	bob := newTestClient("bob", 4)
	if err := hub.register(context.Background(), bob); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := NewRedisPublisher(client, "fanout", hub, nil)
	runErr := make(chan error, 1)
	go func() {
		runErr <- pub.Run(ctx)
	}()
	waitSubscribed(t, mr, "fanout")

	mr.Publish("fanout", "not json")
	env := &Envelope{ID: "m1", RoomID: RoomID("alice", "bob"), SenderID: "alice", RecipientID: "bob", Content: "over redis", Timestamp: 9}
	if err := pub.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	f := receive(t, bob)
	if f.Content != "over redis" || f.SenderID != "alice" || f.RoomID != env.RoomID {
		t.Fatalf("unexpected frame %+v", f)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}
