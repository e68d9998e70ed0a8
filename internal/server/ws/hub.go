package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/eventbus"
)

// Envelope types pushed to clients.
const (
	TypeStatusChanged = "order.status_changed"
	TypeNotification  = "notification"
	TypeViewRendered  = "view.rendered"
)

const (
	sendBuffer = 256
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Envelope wraps every message sent to clients.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type outbound struct {
	kind    string
	payload []byte
}

// Hub fans live updates out to WebSocket clients. A client that cannot keep
// up is disconnected rather than slowing the others down.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	started    chan struct{}
	startOnce  sync.Once
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]*client
	cancel  context.CancelFunc
}

// NewHub creates a hub. Call Start or Run to begin delivering.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, sendBuffer),
		started:    make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[string]*client),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.startOnce.Do(func() { close(h.started) })

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client connected", slog.String("client", c.id), slog.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client disconnected", slog.String("client", c.id), slog.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				if !c.wants(msg.kind) {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					close(c.send)
					delete(h.clients, id)
					h.logger.Warn("ws client too slow, dropped", slog.String("client", id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start runs the hub in the background until Stop is called.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.mu.Unlock()

	go h.Run(ctx)
}

// Stop ends a hub started with Start and waits for it to close clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-h.done
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an envelope for every interested client. When the queue
// is full the message is dropped; views recover through polling.
func (h *Hub) Broadcast(kind string, data any) {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		h.logger.Error("ws marshal failed", slog.String("type", kind), slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- outbound{kind: kind, payload: payload}:
	default:
		h.logger.Warn("ws broadcast queue full, message dropped", slog.String("type", kind))
	}
}

// OnStatusChange forwards bus messages. Only the targeted signal is
// forwarded, so legacy duplicates do not reach clients twice.
func (h *Hub) OnStatusChange(_ context.Context, msg eventbus.Message) {
	if msg.Signal != eventbus.SignalStatusChange {
		return
	}
	h.Broadcast(TypeStatusChanged, statusChangeData{Event: msg.Event, Attempt: msg.Attempt})
}

// Notify forwards user feedback.
func (h *Hub) Notify(n model.Notification) {
	h.Broadcast(TypeNotification, notificationData{
		Level:     string(n.Level),
		Title:     n.Title,
		Message:   n.Message,
		OrderID:   n.OrderID,
		CreatedAt: n.CreatedAt,
	})
}

// ViewRendered forwards a re-rendered view list.
func (h *Hub) ViewRendered(view string, orders []model.Order) {
	statuses := make([]viewOrder, 0, len(orders))
	for _, o := range orders {
		statuses = append(statuses, viewOrder{ID: o.ID, Status: string(o.Status)})
	}
	h.Broadcast(TypeViewRendered, viewData{View: view, Orders: statuses})
}

// Handler upgrades the request and attaches the connection to the hub.
// Before the hub runs, requests are refused with 503.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-h.started:
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "live updates unavailable"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
			return
		}

		cl := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, sendBuffer),
			hub:  h,
			subs: make(map[string]bool),
		}

		select {
		case h.register <- cl:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go cl.writePump()
		go cl.readPump()
	}
}

type statusChangeData struct {
	Event   model.StatusChangeEvent `json:"event"`
	Attempt int                     `json:"attempt"`
}

type notificationData struct {
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type viewOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type viewData struct {
	View   string      `json:"view"`
	Orders []viewOrder `json:"orders"`
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
