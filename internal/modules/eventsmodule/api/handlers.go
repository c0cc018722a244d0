// Package api exposes the event log and the live event feed to staff
package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/events"
)

const (
	defaultLimit = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// EventQuery filters the stored event log
type EventQuery struct {
	Type      string    `form:"type" binding:"max=64"`
	Source    string    `form:"source" binding:"max=128"`
	AccountID uint      `form:"account_id"`
	ShowID    uint      `form:"show_id"`
	Since     time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int       `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int       `form:"offset" binding:"omitempty,min=0"`
}

// Filter converts the query into a bus filter
func (q EventQuery) Filter() events.EventFilter {
	filter := events.EventFilter{}
	if q.Type != "" {
		for _, t := range strings.Split(q.Type, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, events.EventType(t))
			}
		}
	}
	if q.Source != "" {
		filter.Sources = []string{q.Source}
	}
	if q.AccountID > 0 {
		filter.AccountID = &q.AccountID
	}
	if q.ShowID > 0 {
		filter.ShowID = &q.ShowID
	}
	if !q.Since.IsZero() {
		filter.Since = &q.Since
	}
	return filter
}

// WebSocketMessage is one frame of the live feed
type WebSocketMessage struct {
	Type      string        `json:"type"`
	Event     *events.Event `json:"event,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// Handler serves the event endpoints
type Handler struct {
	bus      events.EventBus
	logger   hclog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHandler creates a handler. Websocket upgrades are accepted from the
// request's own host and from allowedOrigins.
func NewHandler(bus events.EventBus, logger hclog.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	h := &Handler{
		bus:     bus,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

// GetEvents handles GET /api/events
func (h *Handler) GetEvents(c *gin.Context) {
	var query EventQuery
	if !api.BindQuery(c, &query) {
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultLimit
	}

	list, total, err := h.bus.GetEvents(c.Request.Context(), query.Filter(), query.Limit, query.Offset)
	if err != nil {
		api.RespondWithInternalError(c, "Failed to retrieve events", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": list,
		"total":  total,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// GetStats handles GET /api/events/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats := h.bus.GetStats()
	healthy := h.bus.Health() == nil
	c.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"healthy": healthy,
	})
}

// Stream handles GET /api/events/ws. Every event matching the optional
// type/source query is forwarded to the socket as it is published.
func (h *Handler) Stream(c *gin.Context) {
	var query EventQuery
	if !api.BindQuery(c, &query) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan events.Event, sendBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the subscription ends with ctx
	_, err = h.bus.Subscribe(ctx, query.Filter(), func(event events.Event) error {
		select {
		case send <- event:
		default:
			h.logger.Debug("dropping event for slow websocket client", "event_id", event.ID)
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to subscribe websocket client", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.track(conn)
	defer func() {
		h.untrack(conn)
		conn.Close()
	}()

	go h.readPump(conn, cancel)

	if err := h.write(conn, WebSocketMessage{Type: "connected", Timestamp: time.Now().Unix()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-send:
			if err := h.write(conn, WebSocketMessage{Type: "event", Event: &event, Timestamp: time.Now().Unix()}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the stream once the client
// goes away
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, message WebSocketMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(message)
}

func (h *Handler) track(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Clients returns the number of connected feed clients
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every feed client
func (h *Handler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}
