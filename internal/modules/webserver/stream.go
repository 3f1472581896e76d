package webserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

type streamClient struct {
	id   string
	out  chan string
	done chan struct{}
	once sync.Once
}

func (c *streamClient) close() { c.once.Do(func() { close(c.done) }) }

// streamHub fans stream messages out to connected SSE and WebSocket clients.
// A client that cannot keep up loses messages rather than blocking senders.
type streamHub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	streams map[string]map[string]*streamClient
}

func newStreamHub(log zerolog.Logger) *streamHub {
	return &streamHub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		streams:  map[string]map[string]*streamClient{},
	}
}

// open declares a stream; opening an existing stream keeps its clients.
func (h *streamHub) open(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.streams[name]; !ok {
		h.streams[name] = map[string]*streamClient{}
	}
}

// send delivers message to every client of the named stream.
func (h *streamHub) send(name, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.streams[name]
	if !ok {
		h.log.Warn().Str("stream", name).Msg("send on unknown stream")
		return
	}
	for id, c := range clients {
		select {
		case c.out <- message:
		default:
			streamDropped.WithLabelValues(name).Inc()
			h.log.Debug().Str("stream", name).Str("client", id).Msg("client buffer full, message dropped")
		}
	}
}

func (h *streamHub) join(name string) (*streamClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.streams[name]
	if !ok {
		return nil, false
	}
	c := &streamClient{id: uuid.NewString(), out: make(chan string, clientBuffer), done: make(chan struct{})}
	clients[c.id] = c
	streamClients.WithLabelValues(name).Set(float64(len(clients)))
	return c, true
}

func (h *streamHub) leave(name string, c *streamClient) {
	c.close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.streams[name]; ok {
		delete(clients, c.id)
		streamClients.WithLabelValues(name).Set(float64(len(clients)))
	}
}

// clients returns the number of connected clients of a stream.
func (h *streamHub) clients(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams[name])
}

// closeAll disconnects every client.
func (h *streamHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.streams {
		for _, c := range clients {
			c.close()
		}
	}
}

// handler serves a stream as WebSocket when the request asks for an upgrade
// and as server-sent events otherwise.
func (h *streamHub) handler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.serveWebSocket(name, w, r)
			return
		}
		h.serveSSE(name, w, r)
	})
}

func (h *streamHub) serveSSE(name string, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	c, ok := h.join(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown stream")
		return
	}
	defer h.leave(name, c)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, ": connected %s\n\n", c.id)
	flusher.Flush()
	h.log.Debug().Str("stream", name).Str("client", c.id).Msg("sse client connected")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case msg := <-c.out:
			for _, line := range strings.Split(msg, "\n") {
				_, _ = fmt.Fprintf(w, "data: %s\n", line)
			}
			_, _ = fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (h *streamHub) serveWebSocket(name string, w http.ResponseWriter, r *http.Request) {
	c, ok := h.join(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown stream")
		return
	}
	defer h.leave(name, c)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("stream", name).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	h.log.Debug().Str("stream", name).Str("client", c.id).Msg("websocket client connected")

	// Inbound frames are ignored; reading is what surfaces a closed peer.
	go func() {
		defer c.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
