package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.NewClient(conn)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readStatus(t *testing.T, conn *websocket.Conn) Status {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBroadcast(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitFor(t, "client", func() bool { return hub.NumClients() == 1 })

	hub.Info("spawned %s", "Cube")
	s := readStatus(t, conn)
	if s.Message != "spawned Cube" || s.Type != INFO {
		t.Errorf("got %+v; expected info 'spawned Cube'", s)
	}

	hub.Error("unbound body %q", "Ghost")
	if s := readStatus(t, conn); s.Type != ERROR || s.Message != `unbound body "Ghost"` {
		t.Errorf("got %+v; expected error", s)
	}
}

func TestNewClientGetsLastMessage(t *testing.T) {
	hub, srv := startHub(t)
	hub.Progress(0.5, "loading")
	waitFor(t, "last message", func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return hub.last != nil
	})

	conn := dial(t, srv)
	s := readStatus(t, conn)
	if s.Type != PROGRESS || s.Progress != 0.5 || s.Message != "loading" {
		t.Errorf("got %+v; expected replayed progress", s)
	}
}

func TestPublishSanitizesProgress(t *testing.T) {
	hub := NewHub()
	hub.Publish("nan", PROGRESS, math32.NaN())
	hub.Publish("inf", PROGRESS, math32.Inf(1))
	for i := 0; i < 2; i++ {
		if s := <-hub.broadcast; s.Progress != 0 {
			t.Errorf("%q progress = %v; expected 0", s.Message, s.Progress)
		}
	}
}

func TestPublishDoesNotBlock(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.Info("message %d", i)
	}
	if n := len(hub.broadcast); n != cap(hub.broadcast) {
		t.Errorf("queue holds %d; expected full queue of %d", n, cap(hub.broadcast))
	}
}
