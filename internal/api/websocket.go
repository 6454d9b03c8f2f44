package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mazewars/internal/game"
	"mazewars/internal/protocol"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Enqueuer accepts inbound messages for the next simulation tick.
type Enqueuer interface {
	Enqueue(in game.Inbound)
}

// HubConfig bounds the websocket transport.
type HubConfig struct {
	MaxClients     int
	MaxConnsPerIP  int
	InboundPerSec  float64
	InboundBurst   int
	AllowedOrigins []string
	StatsInterval  time.Duration
}

// wsClient is one websocket connection. send is closed only by the hub.
type wsClient struct {
	id      game.ClientID
	conn    *websocket.Conn
	ip      string
	send    chan []byte
	limiter *rate.Limiter
}

// Hub is the transport: it assigns client ids, turns frames into inbound
// messages for the engine, and delivers the engine's outbound events.
type Hub struct {
	cfg    HubConfig
	engine Enqueuer
	logger *zap.Logger

	clients    map[game.ClientID]*wsClient
	mu         sync.RWMutex
	unregister chan *wsClient
	stopChan   chan struct{}
	stopOnce   sync.Once

	nextID   atomic.Uint64
	reserved atomic.Int32 // slots held by connections being set up or registered

	connLimiter *ConnLimiter
	upgrader    websocket.Upgrader
}

// NewHub creates a hub. Run must be started before connections are accepted.
func NewHub(cfg HubConfig, engine Enqueuer, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = time.Second
	}
	h := &Hub{
		cfg:         cfg,
		engine:      engine,
		logger:      logger.Named("hub"),
		clients:     make(map[game.ClientID]*wsClient),
		unregister:  make(chan *wsClient),
		stopChan:    make(chan struct{}),
		connLimiter: NewConnLimiter(cfg.MaxConnsPerIP),
	}

	origins := OriginPolicy{Allowed: cfg.AllowedOrigins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allow(origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run processes disconnects and logs the client count once per stats
// interval when it changes. It returns after Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.cfg.StatsInterval)
	defer ticker.Stop()
	lastLogged := -1

	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.id]
			if ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.connLimiter.Release(client.ip)
				h.reserved.Add(-1)
				h.engine.Enqueue(game.Inbound{From: client.id, Msg: game.Disconnect{}})
				h.logger.Debug("client disconnected", zap.Uint64("client_id", uint64(client.id)))
			}
			UpdateWSConnections(count)

		case <-ticker.C:
			count := h.ClientCount()
			if count != lastLogged {
				h.logger.Info(fmt.Sprintf("clients: %d/%d", count, h.cfg.MaxClients))
				lastLogged = count
			}

		case <-h.stopChan:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Deliver implements game.Sink. Each event is encoded once and queued to its
// recipients in order. A client whose queue is full is disconnected rather
// than silently skipped, since the protocol promises in-order delivery.
func (h *Hub) Deliver(out []game.Outbound) {
	var slow []*wsClient
	queued := 0

	h.mu.RLock()
	for _, o := range out {
		frame, err := protocol.Encode(o.Msg)
		if err != nil {
			h.logger.Error("encode outbound", zap.String("event", o.Msg.Event()), zap.Error(err))
			continue
		}

		if o.Target.Broadcast {
			for _, c := range h.clients {
				if !h.queue(c, frame) {
					slow = append(slow, c)
				} else {
					queued++
				}
			}
			continue
		}
		if c, ok := h.clients[o.Target.Client]; ok {
			if !h.queue(c, frame) {
				slow = append(slow, c)
			} else {
				queued++
			}
		}
	}
	h.mu.RUnlock()

	AddWSMessages(queued)
	for _, c := range slow {
		RecordConnectionRejected("slow_consumer")
		h.logger.Warn("dropping slow client", zap.Uint64("client_id", uint64(c.id)))
		c.conn.Close()
	}
}

func (h *Hub) queue(c *wsClient, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var errHubFull = errors.New("server full")

// reserve claims one of MaxClients slots.
func (h *Hub) reserve() error {
	for {
		cur := h.reserved.Load()
		if int(cur) >= h.cfg.MaxClients {
			return errHubFull
		}
		if h.reserved.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// HandleWebSocket upgrades the request and serves the connection until it closes
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if err := h.reserve(); err != nil {
		h.logger.Warn("websocket rejected: server full", zap.Int("max_clients", h.cfg.MaxClients))
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Server full", http.StatusServiceUnavailable)
		return
	}

	if !h.connLimiter.Acquire(ip) {
		h.reserved.Add(-1)
		h.logger.Warn("websocket rejected: per-IP limit", zap.String("ip", ip))
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		h.connLimiter.Release(ip)
		h.reserved.Add(-1)
		return
	}

	client := &wsClient{
		id:      game.ClientID(h.nextID.Add(1)),
		conn:    conn,
		ip:      ip,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.InboundPerSec), h.cfg.InboundBurst),
	}

	// Registered before the first read so replies to an early Hello have
	// somewhere to go.
	h.mu.Lock()
	select {
	case <-h.stopChan:
		h.mu.Unlock()
		conn.Close()
		h.connLimiter.Release(ip)
		h.reserved.Add(-1)
		return
	default:
	}
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client connected",
		zap.Uint64("client_id", uint64(client.id)),
		zap.String("ip", ip))
	UpdateWSConnections(count)

	go h.writePump(client)
	go h.readPump(client)
}

// readPump feeds decoded frames to the engine and unregisters on close.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopChan:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Uint64("client_id", uint64(c.id)), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			RecordInboundDropped("rate_limit")
			continue
		}

		msg, err := protocol.DecodeInbound(data)
		switch {
		case errors.Is(err, protocol.ErrUnknownEvent):
			RecordInboundDropped("unknown")
			continue
		case err != nil:
			RecordInboundDropped("malformed")
			continue
		}

		RecordInboundAccepted()
		h.engine.Enqueue(game.Inbound{From: c.id, Msg: msg})
	}
}

// writePump drains the client's queue to the socket and keeps it alive with pings.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
