package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/render"
	"github.com/mogaika/shoestring/sandbox"
	"github.com/mogaika/shoestring/status"
)

func startServer(t *testing.T) (*sandbox.Sandbox, *httptest.Server) {
	cfg := config.Default()
	cfg.Sandbox.AppName = ""
	if err := sandbox.WriteDemo(t.TempDir(), cfg); err != nil {
		t.Fatal(err)
	}

	hub := status.NewHub()
	sb, err := sandbox.New(cfg, &render.Recorder{}, hub)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go hub.Run(ctx)
	go func() { done <- sb.Run(ctx, 0) }()

	srv := httptest.NewServer(NewServer(sb, hub).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return sb, srv
}

func request(t *testing.T, srv *httptest.Server, method, path string, body string) (int, []byte) {
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

var routeTests = []struct {
	method string
	path   string
	body   string
	code   int
	prefix string
}{
	{"GET", "/json/state", "", http.StatusOK, "{"},
	{"GET", "/json/objects", "", http.StatusOK, "["},
	{"GET", "/json/objects/Cube", "", http.StatusOK, `{"name":"Cube"`},
	{"GET", "/json/objects/Nope", "", http.StatusNotFound, `{"error"`},
	{"POST", "/json/state", "", http.StatusMethodNotAllowed, ""},
	{"GET", "/dump/registry", "", http.StatusOK, "("},
	{"GET", "/dump/state.json", "", http.StatusOK, "{"},
	{"POST", "/action/bogus", "", http.StatusNotFound, `{"error"`},
	{"POST", "/action/cycle?delta=x", "", http.StatusBadRequest, `{"error"`},
	{"POST", "/action/cycle?delta=1", "", http.StatusOK, `{"action":"cycle"`},
	{"POST", "/input", `{"type":"key","name":"w","down":true}`, http.StatusOK, `{"queued"`},
	{"POST", "/input", `{"type":"key","name":"f1"}`, http.StatusBadRequest, `{"error"`},
	{"POST", "/input", `not json`, http.StatusBadRequest, `{"error"`},
	{"GET", "/export/scene.glb", "", http.StatusOK, "glTF"},
	{"GET", "/export/scene.fbx", "", http.StatusOK, "Kaydara FBX Binary"},
	{"GET", "/export/scene.zip", "", http.StatusOK, "PK"},
	{"GET", "/texture/1.webp", "", http.StatusNotFound, `{"error"`},
	{"GET", "/texture/x.webp", "", http.StatusNotFound, ""},
}

func TestRoutes(t *testing.T) {
	_, srv := startServer(t)
	for _, test := range routeTests {
		code, body := request(t, srv, test.method, test.path, test.body)
		if code != test.code {
			t.Errorf("%s %s = %d; expected %d (%s)", test.method, test.path, code, test.code, body)
			continue
		}
		if !bytes.HasPrefix(body, []byte(test.prefix)) {
			t.Errorf("%s %s body %q; expected prefix %q", test.method, test.path, body, test.prefix)
		}
	}
}

func TestActionSpawnBroadcasts(t *testing.T) {
	sb, srv := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/status", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if code, body := request(t, srv, "POST", "/action/spawn", ""); code != http.StatusOK {
		t.Fatalf("spawn = %d %s", code, body)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("no spawn status: %v", err)
		}
		var s status.Status
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatal(err)
		}
		if strings.HasPrefix(s.Message, "spawned Cube") {
			break
		}
	}

	var instances int
	sb.Do(context.Background(), func(sb *sandbox.Sandbox) error {
		instances = sb.Registry.NumInstances()
		return nil
	})
	if instances != 1 {
		t.Errorf("%d instances after spawn; expected 1", instances)
	}
}

func TestActionGridAndClear(t *testing.T) {
	_, srv := startServer(t)

	code, body := request(t, srv, "POST", "/action/grid?name=Cube&n=3&spacing=4", "")
	if code != http.StatusOK {
		t.Fatalf("grid = %d %s", code, body)
	}
	var result map[string]interface{}
	json.Unmarshal(body, &result)
	if result["spawned"] != float64(9) {
		t.Errorf("grid result %v; expected 9 spawned", result)
	}

	code, body = request(t, srv, "POST", "/action/clear", "")
	json.Unmarshal(body, &result)
	if code != http.StatusOK || result["cleared"] != float64(9) {
		t.Errorf("clear = %d %v; expected 9 cleared", code, result)
	}
}

var inputTests = []struct {
	in    InputEvent
	event sandbox.Event
	ok    bool
}{
	{InputEvent{Type: "key", Name: "space", Down: true}, sandbox.KeyEvent{Key: sandbox.KeySpace, Down: true}, true},
	{InputEvent{Type: "button", Name: "right"}, sandbox.ButtonEvent{Button: sandbox.ButtonRight}, true},
	{InputEvent{Type: "move", DX: 1, DY: -2}, sandbox.MouseMoveEvent{DX: 1, DY: -2}, true},
	{InputEvent{Type: "quit", Name: "x"}, sandbox.QuitEvent{Reason: "input x"}, true},
	{InputEvent{Type: "wheel"}, nil, false},
}

func TestInputEvent(t *testing.T) {
	for _, test := range inputTests {
		ev, err := test.in.Event()
		if (err == nil) != test.ok {
			t.Errorf("%+v error = %v", test.in, err)
			continue
		}
		if ev != test.event {
			t.Errorf("%+v = %#v; expected %#v", test.in, ev, test.event)
		}
	}
}
