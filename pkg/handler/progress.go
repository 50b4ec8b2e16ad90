package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lorenzo-12/quantas-link-delay/pkg/progress"
)

// ProgressHandler serves monitor snapshots over HTTP and a websocket stream.
type ProgressHandler struct {
	Monitor *progress.Monitor
	hub     *wsHub
}

func NewProgressHandler(m *progress.Monitor) *ProgressHandler {
	return &ProgressHandler{Monitor: m, hub: newHub()}
}

func (p *ProgressHandler) Register(r *mux.Router) {
	r.HandleFunc("/progress", p.GetProgress).Methods("GET")
	r.HandleFunc("/progress/ws", p.Stream)
}

// Run forwards every monitor snapshot to websocket clients until ctx ends.
// Stream blocks until Run has started.
func (p *ProgressHandler) Run(ctx context.Context) {
	updates, cancel := p.Monitor.Subscribe()
	defer cancel()
	go p.hub.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			p.hub.broadcastSnapshot(snap)
		}
	}
}

// GET /progress
func (p *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.Monitor.Latest())
}

// GET /progress/ws
func (p *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := p.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	// the current state first, so clients never start blank
	if data, err := json.Marshal(p.Monitor.Latest()); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
	select {
	case p.hub.register <- conn:
	case <-p.hub.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case p.hub.remove <- conn:
			case <-p.hub.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}
		}
	}()
}

type wsHub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	done      chan struct{}
}

func newHub() *wsHub {
	return &wsHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
	}
}

func (h *wsHub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Printf("Failed to send snapshot to WebSocket client: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

func (h *wsHub) broadcastSnapshot(snap progress.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Failed to marshal snapshot for WebSocket: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("WebSocket broadcast queue full, dropping snapshot")
	}
}
