package service

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/session"
	"github.com/Mohammedsanin/NeuroBlock/stage"
	"github.com/Mohammedsanin/NeuroBlock/status"
	"github.com/Mohammedsanin/NeuroBlock/suggest"
)

const (
	// writeWait bounds a single frame write to a client.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before its
	// connection is considered dead.
	pongWait = 60 * time.Second

	// pingInterval must be under pongWait so a live client always has a
	// ping to answer before the deadline.
	pingInterval = 30 * time.Second

	// maxClientMessage caps inbound frames; clients only ever send
	// control frames.
	maxClientMessage = 512
)

// eventFrame is one push on /ws/events: the projection the canvas needs to
// repaint badges and hints.
type eventFrame struct {
	Revision    uint64                       `json:"revision"`
	Statuses    map[stage.Kind]status.Status `json:"statuses"`
	Suggestions []suggest.Suggestion         `json:"suggestions"`
}

// eventClient is one websocket subscriber. The write mutex serializes data
// frames and pings; closeOnce makes teardown idempotent between the read
// pump, the write pump, and hub shutdown.
type eventClient struct {
	conn        *websocket.Conn
	connectedAt time.Time
	writeMu     sync.Mutex
	closeOnce   sync.Once
	closed      atomic.Bool
}

// eventHub fans session revision changes out to websocket clients. Each
// client gets its own session subscription, so a slow client coalesces
// notifications instead of backing up the others.
type eventHub struct {
	session *session.Session
	logger  *slog.Logger
	metrics *metric.Metrics

	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*eventClient

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

func newEventHub(sess *session.Session, logger *slog.Logger, metrics *metric.Metrics) *eventHub {
	return &eventHub{
		session: sess,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The facade already answers any origin; the socket
			// carries no credentials worth protecting beyond that.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*eventClient),
		shutdown: make(chan struct{}),
	}
}

// frame snapshots the pushable projection. The revision is read before the
// projections so a frame's payload is never older than the revision it
// claims; at worst it is newer, and the next tick corrects the number.
func (h *eventHub) frame() eventFrame {
	rev := h.session.Revision()
	suggestions := h.session.Suggestions()
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	return eventFrame{
		Revision:    rev,
		Statuses:    h.session.Statuses(),
		Suggestions: suggestions,
	}
}

// handleEvents upgrades the connection and starts the client's pumps.
func (h *eventHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.shutdown:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its error response.
		h.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := &eventClient{conn: conn, connectedAt: time.Now()}
	if !h.addClient(client) {
		// The hub started draining between the shutdown check and the
		// upgrade. The connection is hijacked, so it is ours to close.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.readPump(client)
	go h.writePump(client)
}

// addClient registers the connection and reserves its two pump goroutines.
// Registration and the waitgroup add happen under the same lock close takes
// before waiting, so a client either starts before the drain or not at all.
func (h *eventHub) addClient(client *eventClient) bool {
	h.clientsMu.Lock()
	select {
	case <-h.shutdown:
		h.clientsMu.Unlock()
		return false
	default:
	}
	h.clients[client.conn] = client
	count := len(h.clients)
	h.wg.Add(2)
	h.clientsMu.Unlock()

	h.metrics.SetEventClients(count)
	h.logger.Debug("event client connected",
		"remote", client.conn.RemoteAddr().String(),
		"clients", count)
	return true
}

func (h *eventHub) removeClient(client *eventClient) {
	client.closeOnce.Do(func() {
		client.closed.Store(true)
		client.conn.Close()

		h.clientsMu.Lock()
		delete(h.clients, client.conn)
		count := len(h.clients)
		h.clientsMu.Unlock()

		h.metrics.SetEventClients(count)
		h.logger.Debug("event client disconnected",
			"connected_for", time.Since(client.connectedAt),
			"clients", count)
	})
}

// readPump drains the connection. Clients send no application data, but
// the read loop is what processes pong control frames and notices a dead
// peer.
func (h *eventHub) readPump(client *eventClient) {
	defer h.wg.Done()
	defer h.removeClient(client)

	client.conn.SetReadLimit(maxClientMessage)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes one frame immediately, then a frame per coalesced
// revision tick, with pings to keep the connection verified.
func (h *eventHub) writePump(client *eventClient) {
	defer h.wg.Done()
	defer h.removeClient(client)

	subID, ticks := h.session.Subscribe()
	defer h.session.Unsubscribe(subID)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := h.writeFrame(client, h.frame()); err != nil {
		return
	}

	for {
		select {
		case <-h.shutdown:
			client.writeMu.Lock()
			client.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			client.writeMu.Unlock()
			return

		case _, ok := <-ticks:
			if !ok {
				return
			}
			if err := h.writeFrame(client, h.frame()); err != nil {
				return
			}

		case <-ticker.C:
			client.writeMu.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			client.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *eventHub) writeFrame(client *eventClient, frame eventFrame) error {
	if client.closed.Load() {
		return websocket.ErrCloseSent
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return client.conn.WriteJSON(frame)
}

// close stops accepting connections, tells clients to go away, and waits
// for the pumps to drain. Each write pump delivers the close frame and
// then tears down its own connection, so the frame always precedes the
// close on the wire.
func (h *eventHub) close() {
	h.shutdownOnce.Do(func() {
		h.clientsMu.Lock()
		close(h.shutdown)
		h.clientsMu.Unlock()
	})
	h.wg.Wait()
}
