// Package feed pushes new blocks and mempool transactions to websocket
// clients.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
)

// Message types.
const (
	TypeBlocks       = "blocks"
	TypeTransactions = "transactions"
	TypePing         = "ping"
)

const (
	isoFormat    = "2006-01-02T15:04:05Z"
	pingInterval = 10 * time.Second
	sendTimeout  = time.Second
	clientBuffer = 100
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is one notification sent to every client.
type Message struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp,omitempty"`
	Hash      string   `json:"hash,omitempty"`
	Height    int64    `json:"height,omitempty"`
	TxIDs     []string `json:"txids,omitempty"`
}

// Logger is the logging surface used by the feed.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Publisher accepts notifications.
type Publisher interface {
	Publish(msg Message)
}

type clientMap struct {
	sync.RWMutex
	channels map[chan []byte]struct{}
}

func (cm *clientMap) add(ch chan []byte) {
	cm.Lock()
	defer cm.Unlock()
	cm.channels[ch] = struct{}{}
}

func (cm *clientMap) remove(ch chan []byte) bool {
	cm.Lock()
	defer cm.Unlock()
	if _, ok := cm.channels[ch]; !ok {
		return false
	}
	delete(cm.channels, ch)
	close(ch)
	return true
}

func (cm *clientMap) snapshot() []chan []byte {
	cm.RLock()
	defer cm.RUnlock()
	channels := make([]chan []byte, 0, len(cm.channels))
	for ch := range cm.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (cm *clientMap) count() int {
	cm.RLock()
	defer cm.RUnlock()
	return len(cm.channels)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Hub fans notifications out to connected websocket clients. Clients that
// cannot keep up are dropped.
type Hub struct {
	logger   Logger
	clients  *clientMap
	register chan chan []byte
	dead     chan chan []byte
	outbound chan []byte
	now      func() time.Time
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger Logger) *Hub {
	return &Hub{
		logger:   logger,
		clients:  &clientMap{channels: make(map[chan []byte]struct{})},
		register: make(chan chan []byte, 1_000),
		dead:     make(chan chan []byte, 1_000),
		outbound: make(chan []byte, 1_000),
		now:      time.Now,
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, ch := range h.clients.snapshot() {
				h.clients.remove(ch)
			}
			return
		case ch := <-h.register:
			h.clients.add(ch)
		case ch := <-h.dead:
			h.clients.remove(ch)
		case <-ping.C:
			h.Publish(Message{Type: TypePing})
		case data := <-h.outbound:
			h.broadcast(data)
		}
	}
}

// Publish queues msg for every client. It never blocks; a full queue drops
// the message.
func (h *Hub) Publish(msg Message) {
	if msg.Timestamp == "" {
		msg.Timestamp = h.now().UTC().Format(isoFormat)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("feed: marshal %s message: %v", msg.Type, err)
		return
	}

	select {
	case h.outbound <- data:
	default:
		h.logger.Error("feed: outbound queue full, dropping %s message", msg.Type)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return h.clients.count()
}

func (h *Hub) broadcast(data []byte) {
	for _, ch := range h.clients.snapshot() {
		select {
		case ch <- data:
		case <-time.After(sendTimeout):
			h.logger.Error("feed: timeout sending to client, dropping it")
			h.clients.remove(ch)
		}
	}
}

// Handler upgrades the request and streams notifications until the client
// goes away.
func (h *Hub) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		defer func() { _ = ws.Close() }()

		ch := make(chan []byte, clientBuffer)
		h.register <- ch
		h.logger.Debug("feed: client connected from %s", c.RealIP())

		// Reads only detect the close; clients never send anything useful.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				h.dead <- ch
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
					h.logger.Info("feed: client lost: %v", err)
					h.dead <- ch
					return nil
				}
			}
		}
	}
}
