package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

type Status struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump only drains control frames so a closed socket is noticed.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			c.hub.unregister(c)
			c.conn.Close()
			return
		}
	}
}

// Hub broadcasts status messages to every connected websocket. New clients
// get the last message first.
type Hub struct {
	broadcast chan *Status

	mu      sync.Mutex
	clients map[*client]bool
	last    []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan *Status, 16),
		clients:   make(map[*client]bool),
	}
}

// Run delivers messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
			}
			h.mu.Unlock()
			return
		case s := <-h.broadcast:
			data, err := json.Marshal(s)
			if err != nil {
				log.Printf("[status] Failed to marshal status: %v", err)
				continue
			}
			h.mu.Lock()
			h.last = data
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					log.Printf("[status] Client %v is too slow, message dropped", c.conn.RemoteAddr())
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) NewClient(conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) NumClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish never blocks the caller, a full queue drops the message.
func (h *Hub) Publish(msg string, _type int, progress float32) {
	if math32.IsNaN(progress) || math32.IsInf(progress, 0) {
		progress = 0
	}
	s := &Status{
		Message:  msg,
		Time:     time.Now(),
		Type:     _type,
		Progress: progress,
	}
	select {
	case h.broadcast <- s:
	default:
		log.Printf("[status] Queue full, dropped %q", msg)
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	log.Printf("[status] %s", msg)
	h.Publish(msg, INFO, 0.0)
}

func (h *Hub) Error(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	log.Printf("[status] ERROR: %s", msg)
	h.Publish(msg, ERROR, 0.0)
}

func (h *Hub) Progress(progress float32, format string, a ...interface{}) {
	h.Publish(fmt.Sprintf(format, a...), PROGRESS, progress)
}
