package config

import (
	"encoding/json"
	"log"

	"github.com/pkg/errors"
	"github.com/quasilyte/gdata"
)

const sessionItem = "session"

// Session is the part of the sandbox state kept between runs.
type Session struct {
	CreateIndex      int     `json:"createIndex"`
	MouseSensitivity float32 `json:"mouseSensitivity"`
}

type SessionStore struct {
	m *gdata.Manager
}

func OpenSession(appName string) (*SessionStore, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open session storage for %q", appName)
	}
	return &SessionStore{m: m}, nil
}

// Load returns nil without error when nothing was saved yet.
func (s *SessionStore) Load() (*Session, error) {
	data, err := s.m.LoadItem(sessionItem)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load session")
	}
	if data == nil {
		return nil, nil
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse session")
	}
	return &session, nil
}

func (s *SessionStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal session")
	}
	if err := s.m.SaveItem(sessionItem, data); err != nil {
		return errors.Wrapf(err, "Failed to save session")
	}
	log.Printf("[config] Session saved (create index %d)", session.CreateIndex)
	return nil
}
