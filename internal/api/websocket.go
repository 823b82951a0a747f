package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// Feed message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Outbound messages queued per subscriber before new ones are dropped.
const feedQueueSize = 256

// Feed channels.
const (
	// ChannelConfigChanged carries one event per committed mutation, in
	// revision order.
	ChannelConfigChanged = "config.changed"

	// ChannelConfigSaved carries one event per save attempt.
	ChannelConfigSaved = "config.saved"
)

var feedChannels = map[string]struct{}{
	ChannelConfigChanged: {},
	ChannelConfigSaved:   {},
}

// WSMessage is the envelope of every feed message in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels of a subscribe or unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// feedTimings holds the keepalive intervals derived from the WebSocket config.
type feedTimings struct {
	ping     time.Duration
	pongWait time.Duration
	maxRead  int64
}

func newFeedTimings(cfg config.WebSocketConfig) feedTimings {
	return feedTimings{
		ping:     time.Duration(cfg.PingInterval) * time.Second,
		pongWait: time.Duration(cfg.PongTimeout) * time.Second,
		maxRead:  int64(cfg.MaxMessageSize),
	}
}

// readDeadline is how long a silent connection may stay open.
func (t feedTimings) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pongWait)
}

// Hub is the live change feed of the node's config. Editors subscribe to
// config.changed to follow other editors' mutations and to config.saved to
// learn when the snapshot was persisted.
type Hub struct {
	timings  feedTimings
	logger   *logging.Logger
	revision func() uint64

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

// subscriber is one connected editor.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// NewHub creates a change feed.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timings:     newFeedTimings(cfg),
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// SetRevisionSource sets where the hub reads the current edit sequence
// reported to new subscribers.
func (h *Hub) SetRevisionSource(revision func() uint64) {
	h.mu.Lock()
	h.revision = revision
	h.mu.Unlock()
}

// Run blocks until ctx is cancelled, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Debug("config feed subscriber connected", "subscribers", n)
}

// remove drops sub and closes its queue. Only the call that actually
// removed it closes the queue.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	n := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		close(sub.send)
	}
	h.logger.Debug("config feed subscriber disconnected", "subscribers", n)
}

// Broadcast sends payload to every subscriber of channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding feed event failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if sub.follows(channel) {
			sub.queue(data)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		close(sub.send)
		if sub.conn != nil {
			sub.conn.Close()
		}
		delete(h.subscribers, sub)
	}
}

func (h *Hub) currentRevision() (uint64, bool) {
	h.mu.RLock()
	revision := h.revision
	h.mu.RUnlock()
	if revision == nil {
		return 0, false
	}
	return revision(), true
}

// ObserveChange publishes a committed mutation on config.changed.
// It has the shape of a store observer.
func (h *Hub) ObserveChange(change nodeconfig.Change) {
	h.Broadcast(ChannelConfigChanged, change)
}

// ObserveSave publishes the outcome of a save attempt on config.saved.
func (h *Hub) ObserveSave(rev *nodeconfig.Revision, err error) {
	if err != nil {
		h.Broadcast(ChannelConfigSaved, map[string]any{"result": "error", "error": err.Error()})
		return
	}
	h.Broadcast(ChannelConfigSaved, map[string]any{
		"result":         "ok",
		"revision":       rev.ID,
		"instance_count": rev.InstanceCount,
		"created_at":     rev.CreatedAt,
	})
}

// handleWebSocket attaches an editor to the change feed. Nothing is sent
// until the editor subscribes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, feedQueueSize),
		channels: make(map[string]struct{}),
	}
	s.hub.add(sub)

	go sub.writeLoop()
	go sub.readLoop()
}

func (sub *subscriber) readLoop() {
	defer func() {
		sub.hub.remove(sub)
		sub.conn.Close()
	}()

	t := sub.hub.timings
	sub.conn.SetReadLimit(t.maxRead)
	sub.conn.SetReadDeadline(t.readDeadline()) //nolint:errcheck // read error surfaces below
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sub.hub.logger.Warn("config feed read failed", "error", err)
			}
			return
		}
		sub.conn.SetReadDeadline(t.readDeadline()) //nolint:errcheck // read error surfaces on the next read
		sub.handle(data)
	}
}

func (sub *subscriber) writeLoop() {
	t := sub.hub.timings
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-sub.send:
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // connection is closing
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		sub.conn.SetWriteDeadline(time.Now().Add(t.pongWait)) //nolint:errcheck // write error surfaces below
		if err := sub.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (sub *subscriber) handle(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sub.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		sub.updateChannels(msg, true)
	case WSTypeUnsubscribe:
		sub.updateChannels(msg, false)
	case WSTypePing:
		sub.reply(msg.ID, WSTypePong, nil)
	default:
		sub.reply(msg.ID, WSTypeError, errorPayload("unknown message type: "+msg.Type))
	}
}

// updateChannels subscribes to or unsubscribes from the requested channels.
// A request naming any unknown channel changes nothing.
func (sub *subscriber) updateChannels(msg WSMessage, subscribe bool) {
	channels, err := decodeChannels(msg.Payload)
	if err != nil {
		sub.reply(msg.ID, WSTypeError, errorPayload("invalid "+msg.Type+" payload"))
		return
	}
	for _, ch := range channels {
		if _, ok := feedChannels[ch]; !ok {
			sub.reply(msg.ID, WSTypeError, errorPayload("unknown channel: "+ch))
			return
		}
	}

	sub.mu.Lock()
	for _, ch := range channels {
		if subscribe {
			sub.channels[ch] = struct{}{}
		} else {
			delete(sub.channels, ch)
		}
	}
	sub.mu.Unlock()

	if !subscribe {
		sub.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})
		return
	}

	resp := map[string]any{"subscribed": channels}
	if revision, ok := sub.hub.currentRevision(); ok {
		resp["revision"] = revision
	}
	sub.hub.logger.Debug("config feed subscribed", "channels", channels)
	sub.reply(msg.ID, WSTypeResponse, resp)
}

func decodeChannels(payload any) ([]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var p WSSubscribePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	sort.Strings(p.Channels)
	return p.Channels, nil
}

// queue hands data to the write loop. Messages for a closed or full queue
// are dropped.
func (sub *subscriber) queue(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a queue closed by remove
	}()

	select {
	case sub.send <- data:
	default:
	}
}

func (sub *subscriber) follows(channel string) bool {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	_, ok := sub.channels[channel]
	return ok
}

func (sub *subscriber) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	sub.queue(data)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}
