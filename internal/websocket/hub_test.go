package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestBroadcastReachesClient(t *testing.T) {
	hub, conn := startHub(t)
	hub.Broadcast(Message{Type: "generation_started", Payload: json.RawMessage(`{"model":"fal-ai/veo3"}`)})

	msg := readMessage(t, conn)
	if msg.Type != "generation_started" || string(msg.Payload) != `{"model":"fal-ai/veo3"}` {
		t.Errorf("got %+v", msg)
	}
}

func TestBroadcastToTopicRequiresSubscription(t *testing.T) {
	hub, conn := startHub(t)

	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "topic": "gen-1"}); err != nil {
		t.Fatal(err)
	}
	// The subscription is processed asynchronously; publish until it lands.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				hub.BroadcastToTopic("gen-2", Message{Type: "generation_progress", Payload: json.RawMessage(`{}`)})
				hub.BroadcastToTopic("gen-1", Message{Type: "generation_progress", Payload: json.RawMessage(`{"n":1}`)})
			}
		}
	}()

	msg := readMessage(t, conn)
	if msg.Topic != "gen-1" {
		t.Errorf("received topic %q, want gen-1", msg.Topic)
	}
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub([]string{"https://studio.example.com/"})
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:5173", true},
		{"https://studio.example.com", true},
		{"https://evil.example.com", false},
		{"http://app.local:3000", true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://app.local:3000/api/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := hub.checkOrigin(r); got != tc.want {
			t.Errorf("origin %q: got %v, want %v", tc.origin, got, tc.want)
		}
	}
}
