package relay

import (
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/snapcart_rt/internal/domain"
)

// Hub is the in-process connection registry and room router. It is the only
// shared mutable state of the relay; every mutation happens under its locks,
// so handlers running on different connection goroutines stay safe. Room
// membership is process-local: running more than one relay instance needs a
// shared backplane this design does not have.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*domain.Client
	rooms   map[string]map[string]*domain.Client
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log.With(slog.String("component", "relay_hub")),
		clients: make(map[string]*domain.Client),
		rooms:   make(map[string]map[string]*domain.Client),
	}
}

// Register adds a freshly connected client to the registry.
func (h *Hub) Register(client *domain.Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.log.Debug("client registered", slog.String("conn_id", client.ID))
}

// Unregister drops the client from the registry and from every room it
// joined, so memberships never outlive the connection.
func (h *Hub) Unregister(connID string) *domain.Client {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if !ok {
		h.mu.Unlock()
		return nil
	}
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	client.SetStatus(domain.ClientStatusDisconnected)
	h.log.Debug("client unregistered", slog.String("conn_id", connID))
	return client
}

// Join subscribes the connection to a room. Joining twice is a no-op.
func (h *Hub) Join(connID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*domain.Client)
		h.rooms[roomID] = members
	}
	members[connID] = client
	return true
}

// Leave removes the connection from a room. Clients never send an explicit
// leave today; disconnect cleanup is the main caller.
func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(event domain.Outbound) {
	for _, client := range h.snapshotClients() {
		if !client.EnqueueEvent(event) {
			h.log.Debug("dropping broadcast event",
				slog.String("conn_id", client.ID),
				slog.String("event", event.Event),
			)
		}
	}
}

// EmitTo delivers an event to a single connection. An unknown connection id
// is a silent no-op, mirroring how the previous relay behaved; the return
// value lets callers log it.
func (h *Hub) EmitTo(connID string, event domain.Outbound) bool {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !client.EnqueueEvent(event) {
		h.log.Debug("dropping targeted event",
			slog.String("conn_id", connID),
			slog.String("event", event.Event),
		)
	}
	return true
}

// EmitToRoom delivers an event to every current member of the room. A sender
// that never joined gets no echo.
func (h *Hub) EmitToRoom(roomID string, event domain.Outbound) {
	for _, client := range h.snapshotRoom(roomID) {
		if !client.EnqueueEvent(event) {
			h.log.Debug("dropping room event",
				slog.String("conn_id", client.ID),
				slog.String("room_id", roomID),
				slog.String("event", event.Event),
			)
		}
	}
}

func (h *Hub) Client(connID string) (*domain.Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	return client, ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) snapshotClients() []*domain.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*domain.Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) snapshotRoom(roomID string) []*domain.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[roomID]
	clients := make([]*domain.Client, 0, len(members))
	for _, client := range members {
		clients = append(clients, client)
	}
	return clients
}
