package websocket

import (
	"encoding/json"
	"testing"

	"github.com/vetcontrol/companion/internal/logging"
)

func newTestHub() *Hub {
	return NewHub(logging.Setup("error"))
}

func TestNewMessageDerivesType(t *testing.T) {
	msg := NewMessage("reminder", "created", "7", nil)

	if msg.Type != "reminder_created" {
		t.Errorf("type = %q, want %q", msg.Type, "reminder_created")
	}
	if msg.Entity != "reminder" || msg.Action != "created" || msg.ID != "7" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestMessageOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(NewMessage("reminder", "refreshed", "", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["id"]; ok {
		t.Error("empty id should be omitted")
	}
	if _, ok := raw["payload"]; ok {
		t.Error("nil payload should be omitted")
	}
}

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	hub := newTestHub()
	c1 := NewClient(hub, nil)
	c2 := NewClient(hub, nil)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage("reminder", "created", "1", nil))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.Type != "reminder_created" || msg.ID != "1" {
				t.Errorf("got %+v", msg)
			}
		default:
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil)
	hub.Register(c)

	// One more than the buffer holds; the overflow must not block.
	for i := 0; i <= sendBufferSize; i++ {
		hub.Broadcast(NewMessage("reminder", "created", "1", nil))
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil)
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)

	if hub.ClientCount() != 0 {
		t.Errorf("count = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}

	// A second unregister of the same client is a no-op.
	hub.Unregister(c)
}

func TestBroadcastAfterUnregisterIsSafe(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil)
	hub.Register(c)
	hub.Unregister(c)

	hub.Broadcast(NewMessage("reminder", "deleted", "1", nil))
}
