package sandbox

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyS
	KeyA
	KeyD
	KeySpace
	KeyJ
	KeyK
	KeyI
	KeyO
	KeyP
	KeyEscape
)

var keyNames = map[string]Key{
	"w":      KeyW,
	"s":      KeyS,
	"a":      KeyA,
	"d":      KeyD,
	"space":  KeySpace,
	"j":      KeyJ,
	"k":      KeyK,
	"i":      KeyI,
	"o":      KeyO,
	"p":      KeyP,
	"escape": KeyEscape,
}

func ParseKey(name string) (Key, error) {
	if k, ok := keyNames[strings.ToLower(name)]; ok {
		return k, nil
	}
	return KeyUnknown, errors.Errorf("Unknown key %q", name)
}

type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

func ParseButton(name string) (Button, error) {
	switch strings.ToLower(name) {
	case "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	}
	return ButtonLeft, errors.Errorf("Unknown button %q", name)
}

type Event interface{}

type KeyEvent struct {
	Key  Key
	Down bool
}

type ButtonEvent struct {
	Button Button
	Down   bool
}

type MouseMoveEvent struct {
	DX, DY float32
}

type QuitEvent struct {
	Reason string
}

// CallEvent runs Fn on the loop goroutine and sends its result to Done.
type CallEvent struct {
	Fn   func(s *Sandbox) error
	Done chan error
}

// Events is filled from any goroutine and drained by the loop at the
// start of every tick.
type Events struct {
	mu    sync.Mutex
	queue []Event
}

func (e *Events) Push(ev Event) {
	e.mu.Lock()
	e.queue = append(e.queue, ev)
	e.mu.Unlock()
}

func (e *Events) Drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.queue
	e.queue = nil
	return q
}

func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
