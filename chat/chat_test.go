package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/tracker"
	"github.com/gorilla/websocket"
)

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []string
	if err := bus.Subscribe(ctx, func(m tracker.Message) {
		mu.Lock()
		got = append(got, m.ID)
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(context.Background(), tracker.Message{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	if len(got) != 1 || got[0] != "1" {
		t.Errorf("subscriber received %v, want [1]", got)
	}
	mu.Unlock()

	cancel()
	deadline := time.Now().Add(time.Second)
	for {
		bus.mu.RLock()
		n := len(bus.subs)
		bus.mu.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// serve starts a websocket server attaching every client to hub. The
// "investor" query parameter selects the followed conversation.
func serve(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(tracker.RoleAdmin, r.URL.Query().Get("investor"), ws)
		hub.Attach(conn)
		<-conn.Done()
		hub.Detach(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, investor string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?investor=" + investor
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Notify(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := serve(t, hub)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	admin := dial(t, srv, "")
	waitFor(t, func() bool { return hub.Len() == 3 })

	if n := hub.Notify(tracker.Message{ID: "m1", InvestorID: "alice", Body: "hi"}); n != 2 {
		t.Errorf("Notify() delivered %d, want 2", n)
	}

	for name, ws := range map[string]*websocket.Conn{"alice": alice, "admin": admin} {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatalf("%s: ReadJSON() error = %v", name, err)
		}
		if f.Type != "message" || f.Message == nil || f.Message.ID != "m1" {
			t.Errorf("%s received %+v", name, f)
		}
	}

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Errorf("bob must not receive alice's messages")
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	srv := serve(t, hub)
	ws := dial(t, srv, "alice")
	waitFor(t, func() bool { return hub.Len() == 1 })

	hub.Close()
	if hub.Len() != 0 {
		t.Errorf("Len() after Close = %d", hub.Len())
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("client error = %v, want close going away", err)
	}
}

func TestFrame_JSON(t *testing.T) {
	b, err := json.Marshal(Frame{Type: "read", InvestorID: "alice", Reader: tracker.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"type":"read","investorId":"alice","reader":"admin"}`; got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
