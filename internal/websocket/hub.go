package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"smart-meal-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel carries status pushes between API instances.
const RedisChannel = "session_events"

// Hub fans session status messages out to every websocket watching that
// session, on this instance and, through redis, on the others.
type Hub struct {
	// Registered clients: SessionID -> watchers (several tabs or devices)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication, nil when single-instance
	rdb *redis.Client

	// instanceID tags our own redis publications so we skip them on receive.
	instanceID string

	logger logger.ILogger
}

type clusterMessage struct {
	SessionID string          `json:"session_id"`
	Origin    string          `json:"origin"`
	Message   json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Register hands client to the running hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands client back to the hub, or drops it directly once the hub
// has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

// remove drops client and closes its send channel exactly once.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Last watcher left", map[string]interface{}{"session_id": client.SessionID})
	}
}

func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Notify delivers payload to local watchers of sessionID and publishes it for
// the other instances.
func (h *Hub) Notify(sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{SessionID: sessionID, Origin: h.instanceID, Message: payload})
		if err := h.rdb.Publish(context.Background(), RedisChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	var slow []*Client
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
		h.remove(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliver(payload.SessionID, payload.Message)
		}
	}
}
