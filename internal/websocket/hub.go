package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/scoreboard-live/internal/board"
)

// Message types
const (
	MessageTypeBoardUpdate = "board_update"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	BoardID   string      `json:"board_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// BoardUpdate is the viewer-facing snapshot broadcast on every accepted state
// transition. The pin never leaves the server.
type BoardUpdate struct {
	BoardID         string               `json:"board_id"`
	Title           string               `json:"title"`
	BackgroundColor string               `json:"background_color,omitempty"`
	Data            board.ScoreboardData `json:"data"`
	Standings       []board.Standing     `json:"standings"`
}

// Snapshot builds the broadcast payload for a normalized record.
func Snapshot(sb board.Scoreboard) BoardUpdate {
	return BoardUpdate{
		BoardID:         sb.ID,
		Title:           sb.Title,
		BackgroundColor: sb.BackgroundColor,
		Data:            sb.Data,
		Standings:       sb.Data.RankedParticipants(),
	}
}

// Hub maintains the set of active viewer clients and broadcasts board updates
type Hub struct {
	// Registered clients by board ID
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound board updates
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	// Called when a board gains its first viewer / loses its last one.
	// Set before Run; the broadcaster uses these to start and stop watchers.
	OnFirstViewer func(boardID string)
	OnLastViewer  func(boardID string)

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client  *Client
	boardID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.subscribe:
			h.addSubscriber(req.client, req.boardID)

		case req := <-h.unsubscribe:
			h.removeSubscriber(req.client, req.boardID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) addSubscriber(client *Client, boardID string) {
	h.mu.Lock()
	first := false
	if _, ok := h.clients[boardID]; !ok {
		h.clients[boardID] = make(map[*Client]bool)
		first = true
	}
	h.clients[boardID][client] = true
	h.mu.Unlock()

	h.logger.Debug("client subscribed", "client_id", client.id, "board_id", boardID)
	if first && h.OnFirstViewer != nil {
		h.OnFirstViewer(boardID)
	}
}

func (h *Hub) removeSubscriber(client *Client, boardID string) {
	h.mu.Lock()
	last := false
	if clients, ok := h.clients[boardID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, boardID)
			last = true
		}
	}
	h.mu.Unlock()

	h.logger.Debug("client unsubscribed", "client_id", client.id, "board_id", boardID)
	if last && h.OnLastViewer != nil {
		h.OnLastViewer(boardID)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	var emptied []string
	if _, ok := h.allClients[client]; ok {
		delete(h.allClients, client)
		for boardID, clients := range h.clients {
			if _, ok := clients[client]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.clients, boardID)
					emptied = append(emptied, boardID)
				}
			}
		}
		close(client.send)
	}
	h.mu.Unlock()

	h.logger.Debug("client unregistered", "client_id", client.id)
	if h.OnLastViewer != nil {
		for _, boardID := range emptied {
			h.OnLastViewer(boardID)
		}
	}
}

// broadcastMessage sends a message to all clients subscribed to its board
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	if clients, ok := h.clients[message.BoardID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full, skip
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	}
}

// BroadcastBoardUpdate pushes a board snapshot to every subscribed viewer
func (h *Hub) BroadcastBoardUpdate(update BoardUpdate) {
	message := &Message{
		Type:      MessageTypeBoardUpdate,
		BoardID:   update.BoardID,
		Data:      update,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a board subscription
func (h *Hub) Subscribe(client *Client, boardID string) {
	h.subscribe <- &subscriptionRequest{client: client, boardID: boardID}
}

// Unsubscribe removes a client from a board subscription
func (h *Hub) Unsubscribe(client *Client, boardID string) {
	h.unsubscribe <- &subscriptionRequest{client: client, boardID: boardID}
}

// GetViewerCount returns the number of viewers for a board
func (h *Hub) GetViewerCount(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[boardID]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
