package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goatboynz/pro-irrigation-addon/internal/engine"
	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

// WebSocket constants.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 64

	// wsPingInterval is how often protocol-level pings are sent.
	wsPingInterval = 30 * time.Second

	// wsPongWait is how long to wait for any client traffic before the
	// connection is considered dead.
	wsPongWait = 60 * time.Second

	// wsMaxMessageSize limits inbound client messages.
	wsMaxMessageSize = 4096
)

// Broadcast channels for job lifecycle and safety events.
const (
	ChannelJobQueued   = "job.queued"
	ChannelJobStarted  = "job.started"
	ChannelJobFinished = "job.finished"
	ChannelJobFailed   = "job.failed"
	ChannelPumpAlert   = "pump.alert"
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub manages WebSocket connections and broadcasts events.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "websocket"),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast sends an event to all clients subscribed to the given channel.
// The hub lock is released before per-client subscription checks so hub
// and client locks are never held together.
func (h *Hub) Broadcast(channel string, payload any) {
	msg := WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}

	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscribe adds channels to the client's subscription list.
func (c *WSClient) handleSubscribe(msg WSMessage) {
	sub, ok := c.parseChannels(msg)
	if !ok {
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"subscribed": sub.Channels,
	})
}

// handleUnsubscribe removes channels from the client's subscription list.
func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	sub, ok := c.parseChannels(msg)
	if !ok {
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"unsubscribed": sub.Channels,
	})
}

// parseChannels extracts the channel list from a subscribe or unsubscribe
// payload.
func (c *WSClient) parseChannels(msg WSMessage) (WSSubscribePayload, bool) {
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return WSSubscribePayload{}, false
	}

	var sub WSSubscribePayload
	if err := json.Unmarshal(payloadBytes, &sub); err != nil {
		c.sendError(msg.ID, "invalid subscription payload")
		return WSSubscribePayload{}, false
	}
	return sub, true
}

// isSubscribed reports whether the client subscribed to a channel.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// trySend queues a message for the client, dropping it when the buffer is
// full. A slow consumer must not block broadcasts to others.
func (c *WSClient) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("websocket send buffer full, dropping message")
	}
}

// sendResponse sends a typed response to the client.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	msg := WSMessage{
		Type:      WSTypeError,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   map[string]string{"message": message},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// WSNotifier broadcasts engine events to WebSocket clients. It implements
// engine.Notifier.
type WSNotifier struct {
	hub *Hub
}

// jobPayload is the broadcast payload for job lifecycle channels.
type jobPayload struct {
	PumpID          int64  `json:"pump_id"`
	PumpName        string `json:"pump_name"`
	JobID           string `json:"job_id"`
	ZoneID          int64  `json:"zone_id"`
	ZoneName        string `json:"zone_name"`
	DurationSeconds int    `json:"duration_seconds"`
	QueueLength     int    `json:"queue_length,omitempty"`
	Error           string `json:"error,omitempty"`
}

// alertPayload is the broadcast payload for the pump alert channel.
type alertPayload struct {
	Alert          string `json:"alert"`
	PumpID         int64  `json:"pump_id"`
	PumpName       string `json:"pump_name"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	ClearedJobs    int    `json:"cleared_jobs,omitempty"`
}

func jobBroadcast(pump grow.Pump, job *engine.ActuationJob) jobPayload {
	return jobPayload{
		PumpID:          pump.ID,
		PumpName:        pump.Name,
		JobID:           job.ID,
		ZoneID:          job.ZoneID,
		ZoneName:        job.ZoneName,
		DurationSeconds: job.DurationSeconds,
	}
}

func (n *WSNotifier) JobQueued(pump grow.Pump, job *engine.ActuationJob, queueLength int) {
	payload := jobBroadcast(pump, job)
	payload.QueueLength = queueLength
	n.hub.Broadcast(ChannelJobQueued, payload)
}

func (n *WSNotifier) JobStarted(pump grow.Pump, job *engine.ActuationJob) {
	n.hub.Broadcast(ChannelJobStarted, jobBroadcast(pump, job))
}

func (n *WSNotifier) JobFinished(pump grow.Pump, job *engine.ActuationJob) {
	n.hub.Broadcast(ChannelJobFinished, jobBroadcast(pump, job))
}

func (n *WSNotifier) JobFailed(pump grow.Pump, job *engine.ActuationJob, err error) {
	payload := jobBroadcast(pump, job)
	payload.Error = err.Error()
	n.hub.Broadcast(ChannelJobFailed, payload)
}

func (n *WSNotifier) LockTimeout(pump grow.Pump, elapsed time.Duration) {
	n.hub.Broadcast(ChannelPumpAlert, alertPayload{
		Alert:          "lock_timeout",
		PumpID:         pump.ID,
		PumpName:       pump.Name,
		ElapsedSeconds: int(elapsed.Seconds()),
	})
}

func (n *WSNotifier) QueueCleared(pump grow.Pump, cleared int) {
	n.hub.Broadcast(ChannelPumpAlert, alertPayload{
		Alert:       "emergency_stop",
		PumpID:      pump.ID,
		PumpName:    pump.Name,
		ClearedJobs: cleared,
	})
}
