package main

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	maxConnsPerIP = 8
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to rooms.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      *RoomManager
	tokens     *SessionTokens
	telemetry  *Telemetry
	log        *logrus.Logger

	// Connection limiting (accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a new Hub.
func NewHub(log *logrus.Logger) *Hub {
	telemetry := NewTelemetry(log)
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		rooms:      NewRoomManager(telemetry),
		tokens:     NewSessionTokens(),
		telemetry:  telemetry,
		log:        log,
		ipConns:    make(map[string]int),
	}
}

// CanAccept enforces per-IP and total connection limits.
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

// TrackConnect records a new connection for an IP.
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

// TrackDisconnect records a closed connection for an IP.
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.telemetry.Track(EvtClientConnected)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.telemetry.Track(EvtClientDisconnect)

			if client.roomID != "" {
				if client.role == RoleViewer && client.spectator {
					if room := h.rooms.GetRoom(client.roomID); room != nil {
						room.Game.RemoveClient(client.clientKey())
					}
				} else {
					h.rooms.RemovePlayer(client.roomID, client.playerID)
				}
				h.log.WithFields(logrus.Fields{
					"room":   client.roomID,
					"player": client.playerID,
				}).Info("client left room")
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
