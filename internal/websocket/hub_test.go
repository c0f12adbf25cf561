package statews

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
)

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return nil
}

func TestHubPublishesToUserConnections(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	first := NewClient(hub, nil, "7")
	second := NewClient(hub, nil, "7")
	other := NewClient(hub, nil, "8")
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	record := onboarding.Defaults(26)
	record.Gender = "female"
	hub.Publish("7", record)

	for _, client := range []*Client{first, second} {
		var message struct {
			Type   string            `json:"type"`
			Record onboarding.Record `json:"record"`
		}
		if err := json.Unmarshal(receive(t, client), &message); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if message.Type != "state" || message.Record.Gender != "female" {
			t.Fatalf("unexpected message %+v", message)
		}
	}

	select {
	case payload := <-other.send:
		t.Fatalf("expected no update for another user, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub, nil, "7")
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected closed send queue")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unregister")
	}
}

func TestHubStopClosesQueues(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	connected := NewClient(hub, nil, "7")
	hub.Register(connected)
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
	if _, ok := <-connected.send; ok {
		t.Fatal("expected connected client queue closed")
	}

	late := NewClient(hub, nil, "7")
	hub.Register(late)
	if _, ok := <-late.send; ok {
		t.Fatal("expected late client queue closed")
	}
	hub.Publish("7", onboarding.Defaults(26))
}
