package web

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/sandbox"
	"github.com/mogaika/shoestring/texture"
	"github.com/mogaika/shoestring/webutils"
)

// InputEvent is the json form of a sandbox event.
type InputEvent struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Down bool    `json:"down"`
	DX   float32 `json:"dx"`
	DY   float32 `json:"dy"`
}

func (ie *InputEvent) Event() (sandbox.Event, error) {
	switch ie.Type {
	case "key":
		key, err := sandbox.ParseKey(ie.Name)
		if err != nil {
			return nil, err
		}
		return sandbox.KeyEvent{Key: key, Down: ie.Down}, nil
	case "button":
		button, err := sandbox.ParseButton(ie.Name)
		if err != nil {
			return nil, err
		}
		return sandbox.ButtonEvent{Button: button, Down: ie.Down}, nil
	case "move":
		return sandbox.MouseMoveEvent{DX: ie.DX, DY: ie.DY}, nil
	case "quit":
		return sandbox.QuitEvent{Reason: "input " + ie.Name}, nil
	}
	return nil, errors.Errorf("Unknown input type %q", ie.Type)
}

func (s *Server) do(r *http.Request, fn func(sb *sandbox.Sandbox) error) error {
	ctx, cancel := context.WithTimeout(r.Context(), loopTimeout)
	defer cancel()
	return s.sb.Do(ctx, fn)
}

func (s *Server) HandlerState(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.sb.Snapshot())
}

func (s *Server) HandlerObjects(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.sb.Snapshot().Objects)
}

func (s *Server) HandlerObject(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, o := range s.sb.Snapshot().Objects {
		if o.Name == name {
			webutils.WriteJson(w, o)
			return
		}
	}
	webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Object %q not found", name))
}

func (s *Server) HandlerDumpRegistry(w http.ResponseWriter, r *http.Request) {
	var dump string
	if err := s.do(r, func(sb *sandbox.Sandbox) error {
		dump = sb.Registry.Dump()
		return nil
	}); err != nil {
		webutils.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	webutils.WriteResult(w, []byte(dump))
}

func (s *Server) HandlerDumpState(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJsonFile(w, s.sb.Snapshot(), "state")
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "Param %q is not integer", key)
	}
	return i, nil
}

func (s *Server) HandlerAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	result := make(map[string]interface{})

	var fn func(sb *sandbox.Sandbox) error
	switch action {
	case "spawn":
		fn = func(sb *sandbox.Sandbox) error { return sb.SpawnCurrent() }
	case "clear":
		fn = func(sb *sandbox.Sandbox) error {
			result["cleared"] = sb.ClearInstances()
			return nil
		}
	case "save":
		fn = func(sb *sandbox.Sandbox) error { return sb.Save() }
	case "restore":
		fn = func(sb *sandbox.Sandbox) error { return sb.Restore() }
	case "cycle":
		delta, err := queryInt(r, "delta", 1)
		if err != nil {
			webutils.WriteError(w, http.StatusBadRequest, err)
			return
		}
		fn = func(sb *sandbox.Sandbox) error {
			result["createIndex"] = sb.Cycle(delta)
			return nil
		}
	case "grid":
		n, err := queryInt(r, "n", 10)
		if err != nil {
			webutils.WriteError(w, http.StatusBadRequest, err)
			return
		}
		spacing, err := queryInt(r, "spacing", 2)
		if err != nil {
			webutils.WriteError(w, http.StatusBadRequest, err)
			return
		}
		name := r.URL.Query().Get("name")
		fn = func(sb *sandbox.Sandbox) error {
			if name == "" {
				obj, ok := sb.CurrentObject()
				if !ok {
					return errors.Errorf("Nothing to spawn")
				}
				name = obj.Name
			}
			count, err := sb.SpawnGrid(name, n, float32(spacing))
			result["spawned"] = count
			return err
		}
	case "quit":
		s.sb.Events.Push(sandbox.QuitEvent{Reason: "web"})
		result["action"] = action
		webutils.WriteJson(w, result)
		return
	default:
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Unknown action %q", action))
		return
	}

	if err := s.do(r, fn); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, errors.Wrapf(err, "Action %q failed", action))
		return
	}
	result["action"] = action
	webutils.WriteJson(w, result)
}

func (s *Server) HandlerInput(w http.ResponseWriter, r *http.Request) {
	var ie InputEvent
	if err := webutils.ReadJson(r, &ie); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := ie.Event()
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.sb.Events.Push(ev)
	webutils.WriteJson(w, map[string]int{"queued": s.sb.Events.Len()})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, name, contentType string, fn func(sb *sandbox.Sandbox, buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := s.do(r, func(sb *sandbox.Sandbox) error { return fn(sb, &buf) }); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to export %q", name))
		return
	}
	webutils.WriteFile(w, &buf, name, contentType)
}

func (s *Server) HandlerExportGLTF(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "scene.glb", "model/gltf-binary", func(sb *sandbox.Sandbox, buf *bytes.Buffer) error {
		return sb.Registry.ExportGLTF(buf)
	})
}

func (s *Server) HandlerExportFBX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "scene.fbx", "", func(sb *sandbox.Sandbox, buf *bytes.Buffer) error {
		return sb.Registry.ExportFBX(buf)
	})
}

func (s *Server) HandlerExportFBXZip(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "scene.zip", "application/zip", func(sb *sandbox.Sandbox, buf *bytes.Buffer) error {
		return sb.Registry.ExportFBXZip(buf)
	})
}

// textures are not touched after startup, no loop call needed
func (s *Server) HandlerTexture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	var buf bytes.Buffer
	if err := s.sb.Textures.EncodeWebP(&buf, texture.Handle(id)); err != nil {
		webutils.WriteError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	webutils.WriteResult(w, buf.Bytes())
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] Failed to upgrade status connection: %v", err)
		return
	}
	s.hub.NewClient(conn)
}
