package signaling

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

const (
	EventCriticalVitals = "critical_vitals"
	EventRuleMatch      = "rule_match"
)

// Event is pushed to every connected device of the addressed doctors.
type Event struct {
	Type        string    `json:"type"`
	PatientID   uuid.UUID `json:"patientId"`
	PatientName string    `json:"patientName"`
	Data        any       `json:"data,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub keeps the live websocket connections of doctors keyed by user id.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[uuid.UUID]map[*client]struct{}
	mu       sync.Mutex
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[uuid.UUID]map[*client]struct{}),
		log:     log.With().Str("component", "signaling").Logger(),
	}
}

// ServeWS upgrades the request and registers the connection for userID.
// It returns once the connection's pumps are running.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info().Str("user_id", c.userID.String()).Msg("👤 doctor connected")
}

// unregisterLocked must be called with h.mu held.
func (h *Hub) unregisterLocked(c *client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.unregisterLocked(c)
	h.mu.Unlock()
}

// readPump only services control frames; doctors never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.log.Info().Str("user_id", c.userID.String()).Msg("🔌 doctor disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast delivers the event to every connection of the given users and
// returns how many connections accepted it. Connections whose buffer is
// full are dropped.
func (h *Hub) Broadcast(userIDs []uuid.UUID, event Event) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", event.Type).Msg("failed to encode event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, id := range userIDs {
		for c := range h.clients[id] {
			select {
			case c.send <- payload:
				delivered++
			default:
				h.log.Warn().Str("user_id", id.String()).Msg("dropping slow websocket client")
				h.unregisterLocked(c)
			}
		}
	}
	return delivered
}

func (h *Hub) ActiveClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for c := range set {
			h.unregisterLocked(c)
		}
	}
}
