// Package remote mirrors application events to websocket clients and accepts
// player commands from them.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64

	maxMessageSize = 64 * 1024
)

// Message is the wire envelope in both directions.
type Message struct {
	Type      domain.EventType `json:"type"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
}

type launchData struct {
	ExtraParameters []string               `json:"extraParameters"`
	Properties      map[string]interface{} `json:"properties"`
}

type songData struct {
	IDs      []string `json:"ids"`
	ServerID string   `json:"serverId"`
	Favorite bool     `json:"favorite"`
	Rating   int      `json:"rating"`
}

type errorData struct {
	Message string `json:"message"`
}

const typeError domain.EventType = "error"

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Bridge serves /events. Every bus event is sent to every client; inbound
// messages are published on the bus.
type Bridge struct {
	logger   *slog.Logger
	bus      ports.EventBus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	sub     domain.SubscriptionID
	server  *http.Server
	addr    net.Addr

	wg sync.WaitGroup
}

// NewBridge creates a bridge subscribed to every bus event.
func NewBridge(bus ports.EventBus, logger *slog.Logger) *Bridge {
	b := &Bridge{
		logger:  logger.With(slog.String("service", "RemoteBridge")),
		bus:     bus,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// local control surface; clients are not browsers on other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	b.sub = bus.SubscribeAll(b.broadcast)
	return b
}

// Handler returns the HTTP handler serving /events.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", b.serveEvents)
	return mux
}

// Start listens on addr and serves in the background.
func (b *Bridge) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("remote bridge listen %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	b.mu.Lock()
	b.server = server
	b.addr = ln.Addr()
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("remote bridge stopped", slog.Any("error", err))
		}
	}()
	b.logger.Info("remote bridge listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.addr == nil {
		return ""
	}
	return b.addr.String()
}

// ClientCount returns the number of connected clients.
func (b *Bridge) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Shutdown stops the server, disconnects every client and waits for their
// goroutines.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	server := b.server
	clients := b.clients
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()

	b.bus.Unsubscribe(b.sub)

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}
	// hijacked connections are not closed by http.Server.Shutdown
	for c := range clients {
		c.close()
		_ = c.conn.Close()
	}
	b.wg.Wait()
	return err
}

func (b *Bridge) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	b.wg.Add(2)
	b.mu.Unlock()

	b.logger.Debug("remote client connected", slog.String("remote", r.RemoteAddr))
	go b.writePump(c)
	go b.readPump(c)
}

func (b *Bridge) remove(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c]
	delete(b.clients, c)
	b.mu.Unlock()
	if ok {
		c.close()
	}
}

func (b *Bridge) broadcast(event domain.Event) {
	payload, err := encode(event)
	if err != nil {
		b.logger.Debug("failed to encode event", slog.String("type", string(event.Type())), slog.Any("error", err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			// too slow to keep up
			delete(b.clients, c)
			c.close()
		}
	}
}

func encode(event domain.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      event.Type(),
		Data:      data,
		Timestamp: event.Timestamp().UnixMilli(),
	})
}

func (b *Bridge) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		b.wg.Done()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) readPump(c *client) {
	defer func() {
		b.remove(c)
		_ = c.conn.Close()
		b.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Debug("remote client read failed", slog.Any("error", err))
			}
			return
		}

		event, err := decode(raw)
		if err != nil {
			b.reply(c, err)
			continue
		}
		b.bus.Publish(event)
	}
}

func (b *Bridge) reply(c *client, err error) {
	data, _ := json.Marshal(errorData{Message: err.Error()})
	payload, _ := json.Marshal(Message{Type: typeError, Data: data, Timestamp: time.Now().UnixMilli()})

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// decode turns an inbound message into the event it requests.
func decode(raw []byte) (domain.Event, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case domain.EventSetProperties:
		var props map[string]interface{}
		if err := json.Unmarshal(msg.Data, &props); err != nil || len(props) == 0 {
			return nil, fmt.Errorf("%s: data must be an object of properties", msg.Type)
		}
		return domain.NewSetPropertiesEvent(props), nil

	case domain.EventPlayerInitialize, domain.EventPlayerRestart:
		var data launchData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return nil, fmt.Errorf("%s: %w", msg.Type, err)
			}
		}
		if msg.Type == domain.EventPlayerRestart {
			return domain.NewPlayerRestartEvent(data.ExtraParameters, data.Properties), nil
		}
		return domain.NewPlayerInitializeEvent(data.ExtraParameters, data.Properties), nil

	case domain.EventSongFavorite, domain.EventSongRating:
		var data songData
		if err := json.Unmarshal(msg.Data, &data); err != nil || len(data.IDs) == 0 {
			return nil, fmt.Errorf("%s: data must name the songs", msg.Type)
		}
		if msg.Type == domain.EventSongFavorite {
			return domain.NewSongFavoriteEvent(data.IDs, data.ServerID, data.Favorite), nil
		}
		if data.Rating < 0 || data.Rating > 5 {
			return nil, fmt.Errorf("%s: rating must be between 0 and 5", msg.Type)
		}
		return domain.NewSongRatingEvent(data.IDs, data.ServerID, data.Rating), nil
	}

	if domain.IsCommandEvent(msg.Type) {
		return domain.NewCommandEvent(msg.Type), nil
	}
	return nil, fmt.Errorf("unsupported message type %q", msg.Type)
}
