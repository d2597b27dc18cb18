package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/AdaSupport/ada-conversations-api-demo/internal/model"
)

func newTestWSClient(conversationID string) *WSClient {
	return &WSClient{
		EndUserID:      "user-" + conversationID,
		ConversationID: conversationID,
		Send:           make(chan []byte, 4),
	}
}

func recvWSEvent(t *testing.T, ch chan []byte) *model.WSEvent {
	t.Helper()
	select {
	case data := <-ch:
		var event model.WSEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return &event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func waitForOnline(t *testing.T, hub *WSHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.OnlineCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("online count = %d, want %d", hub.OnlineCount(), want)
}

func TestHubSendToConversationTargetsOnlyThatConversation(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	a := newTestWSClient("conv-a")
	b := newTestWSClient("conv-b")
	hub.Register(a)
	hub.Register(b)
	waitForOnline(t, hub, 2)

	hub.SendToConversation("conv-a", &model.WSEvent{Type: model.WSConversationEnded})

	event := recvWSEvent(t, a.Send)
	if event.Type != model.WSConversationEnded {
		t.Errorf("event type = %q, want %q", event.Type, model.WSConversationEnded)
	}

	select {
	case data := <-b.Send:
		t.Errorf("client on conv-b received event it should not see: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubSendToConversationReachesEveryWatcher(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	// Two tabs watching the same conversation both get the event.
	first := newTestWSClient("conv-a")
	second := newTestWSClient("conv-a")
	hub.Register(first)
	hub.Register(second)
	waitForOnline(t, hub, 2)

	hub.SendToConversation("conv-a", &model.WSEvent{Type: model.WSNotification})

	for _, client := range []*WSClient{first, second} {
		event := recvWSEvent(t, client.Send)
		if event.Type != model.WSNotification {
			t.Errorf("event type = %q, want %q", event.Type, model.WSNotification)
		}
	}
}

func TestHubBroadcastReachesAllConversations(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	a := newTestWSClient("conv-a")
	b := newTestWSClient("conv-b")
	hub.Register(a)
	hub.Register(b)
	waitForOnline(t, hub, 2)

	hub.Broadcast(&model.WSEvent{Type: model.WSNotification})

	for _, client := range []*WSClient{a, b} {
		event := recvWSEvent(t, client.Send)
		if event.Type != model.WSNotification {
			t.Errorf("event type = %q, want %q", event.Type, model.WSNotification)
		}
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	client := newTestWSClient("conv-a")
	hub.Register(client)
	waitForOnline(t, hub, 1)

	hub.Unregister(client)
	waitForOnline(t, hub, 0)

	select {
	case _, open := <-client.Send:
		if open {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}
}
