package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID, coupleID int64) *Client {
	return &Client{
		hub:      hub,
		conn:     nil,
		send:     make(chan []byte, sendBufferSize),
		userID:   userID,
		coupleID: coupleID,
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1, 0)
	c2 := mockClient(hub, 2, 0)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1, 0)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func mustReceive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func mustNotReceive(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestBroadcastCouple(t *testing.T) {
	hub := NewHub(slog.Default())

	alice := mockClient(hub, 1, 10)
	bob := mockClient(hub, 2, 10)
	carol := mockClient(hub, 3, 20)
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	msg := NewMessage("transaction", "created", 42, map[string]any{"shared": true})
	hub.BroadcastCouple(10, 1, msg)

	for _, c := range []*Client{alice, bob} {
		got := mustReceive(t, c)
		if got.Type != "transaction_created" {
			t.Errorf("type = %s, want transaction_created", got.Type)
		}
		if got.ID != 42 {
			t.Errorf("id = %d, want 42", got.ID)
		}
	}
	mustNotReceive(t, carol)
}

func TestBroadcastCoupleUnlinkedFallsBackToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	alice := mockClient(hub, 1, 0)
	other := mockClient(hub, 2, 0)
	hub.Register(alice)
	hub.Register(other)

	hub.BroadcastCouple(0, 1, NewMessage("goal", "updated", 7, nil))

	got := mustReceive(t, alice)
	if got.Type != "goal_updated" {
		t.Errorf("type = %s, want goal_updated", got.Type)
	}
	mustNotReceive(t, other)
}

func TestBroadcastUser(t *testing.T) {
	hub := NewHub(slog.Default())

	// Same user on two devices, partner on a third.
	phone := mockClient(hub, 1, 10)
	laptop := mockClient(hub, 1, 10)
	partner := mockClient(hub, 2, 10)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(partner)

	hub.BroadcastUser(1, NewMessage("invite", "received", 3, nil))

	mustReceive(t, phone)
	mustReceive(t, laptop)
	mustNotReceive(t, partner)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.BroadcastCouple(1, 1, NewMessage("couple", "disconnected", 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1, 0)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastUser(1, NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.BroadcastUser(1, NewMessage("test", "dropped", 999, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("goal", "contributed", 5, nil)
	if msg.Type != "goal_contributed" {
		t.Errorf("type = %s, want goal_contributed", msg.Type)
	}
	if msg.Entity != "goal" {
		t.Errorf("entity = %s, want goal", msg.Entity)
	}
	if msg.Action != "contributed" {
		t.Errorf("action = %s, want contributed", msg.Action)
	}
	if msg.ID != 5 {
		t.Errorf("id = %d, want 5", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := mockClient(hub, userID, 0)
			hub.Register(c)
			hub.BroadcastUser(userID, NewMessage("test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
