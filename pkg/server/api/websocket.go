package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"oracle-pricefeed/pkg/logging"
	"oracle-pricefeed/pkg/metrics"
	"oracle-pricefeed/pkg/oracle/aggregator"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 45 * time.Second
	wsSendBufferSize = 64
)

// Hub broadcasts newly stored aggregated prices to connected WebSocket
// clients. Slow clients are dropped rather than allowed to backpressure
// the oracle.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	updates chan *aggregator.AggregatedPrice
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// priceMessage is the frame sent to streaming clients.
type priceMessage struct {
	Type  string                      `json:"type"` // always "price_update"
	Price *aggregator.AggregatedPrice `json:"price"`
}

// NewHub creates a WebSocket broadcast hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]struct{}),
		updates: make(chan *aggregator.AggregatedPrice, 100),
	}
}

// Broadcast queues a price for delivery to all connected clients. Never
// blocks the caller: when the queue is full the update is dropped.
func (h *Hub) Broadcast(price *aggregator.AggregatedPrice) {
	select {
	case h.updates <- price:
	default:
		h.logger.Warn("Update queue full, dropping price update", "symbol", price.Symbol)
	}
}

// Run delivers queued updates until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case price := <-h.updates:
			data, err := json.Marshal(priceMessage{Type: "price_update", Price: price})
			if err != nil {
				h.logger.Error("Failed to marshal price update", "error", err)
				continue
			}
			h.deliver(data)
		}
	}
}

func (h *Hub) deliver(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Buffer full: the client is too slow, drop it.
			go h.remove(client)
		}
	}
}

// handleWebSocket upgrades the connection and registers the client.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	metrics.WebSocketClients.Inc()

	h.logger.Info("WebSocket client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if ok {
		metrics.WebSocketClients.Dec()
		_ = client.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.remove(client)
	}
}

// writePump forwards queued frames to the client and keeps the connection
// alive with pings.
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects. The stream is
// one-way: clients receive every stored price.
func (h *Hub) readPump(client *wsClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
