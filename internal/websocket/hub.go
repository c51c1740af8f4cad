package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"paperchat/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries session events between gateway instances.
const ClusterChannel = "paperchat_session_events"

type Hub struct {
	// Registered clients map: scope -> connections (multi-tab, multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance delivery
	rdb *redis.Client

	// instanceId marks our own redis messages so they are not delivered twice
	instanceId string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

type clusterMessage struct {
	Origin      string          `json:"origin"`
	TargetScope string          `json:"target_scope"`
	Message     json.RawMessage `json:"message"`
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Scope] = append(h.clients[client.Scope], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"scope": client.Scope})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Scope]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.Scope] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.Scope]) == 0 {
					delete(h.clients, client.Scope)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"scope": client.Scope})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers payload to the scope's local connections and publishes it
// for the other instances.
func (h *Hub) Send(scope string, payload []byte) {
	h.deliver(scope, payload)

	if h.rdb != nil {
		data, err := json.Marshal(clusterMessage{
			Origin:      h.instanceId,
			TargetScope: scope,
			Message:     payload,
		})
		if err != nil {
			h.logger.Error("Hub", "Failed to encode cluster message", map[string]interface{}{"error": err.Error()})
			return
		}
		if err := h.rdb.Publish(context.Background(), ClusterChannel, data).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish cluster message", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Connections returns how many local connections a scope has.
func (h *Hub) Connections(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[scope])
}

func (h *Hub) deliver(scope string, payload []byte) {
	// Send channels are only closed under the write lock, so holding the read
	// lock keeps them open while we write.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[scope] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"scope": scope})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
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
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceId || payload.TargetScope == "" {
				continue
			}
			h.deliver(payload.TargetScope, payload.Message)
		}
	}
}
