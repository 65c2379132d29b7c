package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket Upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS layer in front of the upgrade.
		return true
	},
}

// Connection information
type Connection struct {
	ID       string          `json:"id"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// PushMessage base structure for pushed lifecycle events
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// PushService broadcasts intent and batch lifecycle events to connected
// websocket clients.
type PushService struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	broadcast   chan PushMessage
	stopCh      chan struct{}
	running     bool
	mu          sync.Mutex
}

// NewPushService creates a new PushService.
func NewPushService() *PushService {
	return &PushService{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection, 16),
		unregister:  make(chan *Connection, 16),
		broadcast:   make(chan PushMessage, 256),
	}
}

// Start begins the hub loop
func (s *PushService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go s.hubLoop()
	log.Printf("✅ PushService started")
}

// Stop closes every connection and stops the hub loop
func (s *PushService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	log.Printf("🛑 PushService stopped")
}

// HandleUpgrade upgrades an HTTP request to a websocket connection and
// registers it with the hub.
func (s *PushService) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Push] WebSocket upgrade failed: %v", err)
		return
	}
	c := &Connection{
		ID:       uuid.NewString(),
		Conn:     conn,
		Send:     make(chan []byte, 64),
		LastPing: time.Now(),
	}
	s.register <- c
	go s.writeLoop(c)
	go s.readLoop(c)
}

// Broadcast queues an event for every connected client. Drops the event if
// the hub queue is full rather than blocking the caller.
func (s *PushService) Broadcast(eventType string, data interface{}) {
	msg := PushMessage{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	select {
	case s.broadcast <- msg:
	default:
		log.Printf("⚠️ [Push] Broadcast queue full, dropping %s event", eventType)
	}
}

func (s *PushService) hubLoop() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.connections[c.ID] = c
			count := len(s.connections)
			s.mu.Unlock()
			log.Printf("🔌 [Push] Client connected (%s), %d active", c.ID, count)
		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[c.ID]; ok {
				delete(s.connections, c.ID)
				close(c.Send)
			}
			s.mu.Unlock()
		case msg := <-s.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			s.mu.Lock()
			for _, c := range s.connections {
				select {
				case c.Send <- payload:
				default:
					// Slow client; skip this event for it.
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			s.mu.Lock()
			for id, c := range s.connections {
				close(c.Send)
				c.Conn.Close()
				delete(s.connections, id)
			}
			s.mu.Unlock()
			return
		}
	}
}

func (s *PushService) writeLoop(c *Connection) {
	pingTicker := time.NewTicker(30 * time.Second)
	defer func() {
		pingTicker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *PushService) readLoop(c *Connection) {
	defer func() {
		s.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(4096)
	c.Conn.SetPongHandler(func(string) error {
		c.LastPing = time.Now()
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
