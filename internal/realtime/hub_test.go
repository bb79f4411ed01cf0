package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Attach(r.URL.Query().Get("user_id"), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PushReachesOnlyTheAddressee(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newWSServer(t, hub)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	// Attach is asynchronous relative to the dial returning; give the
	// register a moment to land before pushing.
	waitForClients(t, hub, 2)

	hub.Push("alice", map[string]string{"kind": "ping", "to": "alice"})

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(frame, &got); err != nil || got["to"] != "alice" {
		t.Fatalf("unexpected frame %s (%v)", frame, err)
	}

	// Bob must see nothing.
	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob received a frame addressed to alice")
	}
}

func TestHub_FanOutToAllConnectionsOfOneUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newWSServer(t, hub)

	tab1 := dial(t, srv, "carol")
	tab2 := dial(t, srv, "carol")
	waitForClients(t, hub, 2)

	hub.Push("carol", map[string]string{"kind": "notify"})

	for i, conn := range []*websocket.Conn{tab1, tab2} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("connection %d missed the event: %v", i, err)
		}
	}
}

func TestHub_PushToAbsentUserIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Must not panic or block with nobody connected.
	hub.Push("ghost", map[string]string{"kind": "ping"})
}

// waitForClients polls until the hub tracks n connections, so tests don't
// race the asynchronous register.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		total := 0
		for _, set := range hub.clients {
			total += len(set)
		}
		hub.mu.RUnlock()
		if total >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", n)
}
