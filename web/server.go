package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/sandbox"
	"github.com/mogaika/shoestring/status"
)

// how long a request waits for the loop to run its call
const loopTimeout = 5 * time.Second

type Server struct {
	sb       *sandbox.Sandbox
	hub      *status.Hub
	upgrader websocket.Upgrader
}

func NewServer(sb *sandbox.Sandbox, hub *status.Hub) *Server {
	return &Server{
		sb:  sb,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/state", s.HandlerState).Methods("GET")
	r.HandleFunc("/json/objects", s.HandlerObjects).Methods("GET")
	r.HandleFunc("/json/objects/{name}", s.HandlerObject).Methods("GET")
	r.HandleFunc("/dump/registry", s.HandlerDumpRegistry).Methods("GET")
	r.HandleFunc("/dump/state.json", s.HandlerDumpState).Methods("GET")
	r.HandleFunc("/action/{action}", s.HandlerAction).Methods("POST")
	r.HandleFunc("/input", s.HandlerInput).Methods("POST")
	r.HandleFunc("/export/scene.glb", s.HandlerExportGLTF).Methods("GET")
	r.HandleFunc("/export/scene.fbx", s.HandlerExportFBX).Methods("GET")
	r.HandleFunc("/export/scene.zip", s.HandlerExportFBXZip).Methods("GET")
	r.HandleFunc("/texture/{id:[0-9]+}.webp", s.HandlerTexture).Methods("GET")
	r.HandleFunc("/ws/status", s.HandlerStatus)

	return handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(r))
}

// StartServer serves until ctx is done.
func StartServer(ctx context.Context, addr string, sb *sandbox.Sandbox, hub *status.Hub) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewServer(sb, hub).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[web] Starting server %v", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "Failed to serve %v", addr)
	}
	return nil
}
