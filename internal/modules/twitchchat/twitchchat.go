// Package twitchchat reads the Twitch channel chat and republishes each
// message on tw_message.
//
// The module connects over Twitch's IRC-over-WebSocket endpoint whenever a
// token arrives on tw_token. It needs the chat:read scope, which it requests
// from the auth module on start.
package twitchchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/module"
)

// Name of the module.
const Name = "Twitch Chat"

// Scope required to read chat.
const Scope = "chat:read"

// Conn is the subset of a WebSocket connection the module uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens chat connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsDialer struct{ d *websocket.Dialer }

func (w wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := w.d.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

const (
	defaultReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
	defaultMaxReconnects  = 10
)

// Config holds construction defaults.
type Config struct {
	URL      string
	Username string
	Channel  string
	// Dialer defaults to gorilla's websocket dialer.
	Dialer Dialer
	// ReconnectDelay is the first wait after a lost connection; it doubles
	// per failed attempt up to 30s. MaxReconnects bounds consecutive failures.
	ReconnectDelay time.Duration
	MaxReconnects  int
	Logger         *zerolog.Logger
}

type Chat struct {
	*module.Base

	bus    *bus.Bus
	log    zerolog.Logger
	url    string
	dialer Dialer
	delay  time.Duration
	tries  int
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	username string
	channel  string
	token    string
	conn     Conn

	// dialMu serializes connection replacement.
	dialMu sync.Mutex
	wg     sync.WaitGroup
}

type data struct {
	module.Data
	Username string `json:"username"`
	Channel  string `json:"channel"`
}

// New constructs the module and subscribes it to tw_token.
func New(b *bus.Bus, cfg Config) *Chat {
	c := &Chat{
		Base:     module.NewBase(Name, true),
		bus:      b,
		url:      cfg.URL,
		dialer:   cfg.Dialer,
		delay:    cfg.ReconnectDelay,
		tries:    cfg.MaxReconnects,
		username: cfg.Username,
		channel:  cfg.Channel,
	}
	if c.dialer == nil {
		c.dialer = wsDialer{d: websocket.DefaultDialer}
	}
	if c.delay <= 0 {
		c.delay = defaultReconnectDelay
	}
	if c.tries <= 0 {
		c.tries = defaultMaxReconnects
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("module", Name).Logger()
	} else {
		c.log = zerolog.Nop()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	bus.Subscribe(b, bus.Token, func(_ context.Context, token string) error {
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		c.connectAsync()
		return nil
	})
	return c
}

// Start requests the chat:read scope.
func (c *Chat) Start(ctx context.Context) error {
	return bus.Publish(ctx, c.bus, bus.RequireScope, Scope)
}

// Restart reconnects with the last token so new settings take effect.
func (c *Chat) Restart(ctx context.Context) error {
	c.connectAsync()
	return nil
}

// Stop closes the connection and waits for the reader to exit.
func (c *Chat) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.cancel()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectAsync connects with the current token in the background. It does
// nothing without a token or once Stop has begun.
func (c *Chat) connectAsync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || c.ctx.Err() != nil {
		return
	}
	token := c.token
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.connect(token); err != nil {
			c.log.Error().Err(err).Msg("chat connection failed")
		}
	}()
}

// connect replaces any current connection with a new one and reads from it
// until it closes. A connection lost while still current is re-established.
func (c *Chat) connect(token string) error {
	c.dialMu.Lock()
	conn, username, err := c.dial(token)
	c.dialMu.Unlock()
	if err != nil || conn == nil {
		return err
	}
	c.log.Info().Str("username", username).Msg("chat connected")
	if c.read(conn, username) {
		c.reconnect()
	}
	return nil
}

// reconnect re-dials with the latest token, doubling the wait after each
// failure. It stops once another connection took over or after c.tries
// consecutive failures.
func (c *Chat) reconnect() {
	delay := c.delay
	for attempt := 1; attempt <= c.tries; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(delay):
		}
		c.mu.Lock()
		token, replaced := c.token, c.conn != nil
		c.mu.Unlock()
		if replaced {
			return
		}

		c.dialMu.Lock()
		conn, username, err := c.dial(token)
		c.dialMu.Unlock()
		if err != nil {
			delay = min(delay*2, maxReconnectDelay)
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("chat reconnect failed")
			continue
		}
		if conn == nil {
			return
		}
		c.log.Info().Str("username", username).Int("attempt", attempt).Msg("chat reconnected")
		if !c.read(conn, username) {
			return
		}
		attempt, delay = 0, c.delay
	}
	c.log.Error().Int("attempts", c.tries).Msg("chat reconnect gave up")
}

func (c *Chat) dial(token string) (Conn, string, error) {
	if c.ctx.Err() != nil {
		return nil, "", nil
	}
	c.mu.Lock()
	username, channel := strings.ToLower(c.username), strings.ToLower(strings.TrimPrefix(c.channel, "#"))
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	if username == "" || channel == "" {
		c.log.Warn().Str("username", username).Str("channel", channel).Msg("chat username or channel not set, not connecting")
		return nil, "", nil
	}

	conn, err := c.dialer.Dial(c.ctx, c.url)
	if err != nil {
		return nil, "", fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil, "", nil
	}
	c.conn = conn
	c.mu.Unlock()

	login := []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + token,
		"NICK " + username,
		"JOIN #" + channel,
	}
	for _, line := range login {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			_ = conn.Close()
			return nil, "", fmt.Errorf("login: %w", err)
		}
	}
	return conn, username, nil
}

// read handles lines until conn fails. It reports whether the connection was
// lost while still the current one, as opposed to replaced or stopped.
func (c *Chat) read(conn Conn, username string) bool {
	defer conn.Close()
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			lost := c.conn == conn && c.ctx.Err() == nil
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if lost {
				c.log.Info().Err(err).Msg("chat connection lost")
			}
			return lost
		}
		for _, line := range strings.Split(string(p), "\n") {
			m, ok := parseLine(line)
			if !ok {
				continue
			}
			c.handle(conn, m, username)
		}
	}
}

func (c *Chat) handle(conn Conn, m ircMessage, username string) {
	switch m.Command {
	case "PING":
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PONG :"+m.Trailing()+"\r\n"))
	case "NOTICE":
		c.log.Warn().Str("notice", m.Trailing()).Msg("chat notice")
	case "RECONNECT":
		c.log.Info().Msg("server requested reconnect")
		_ = conn.Close()
	case "PRIVMSG":
		user := m.Nick()
		msg := bus.Chat{
			Message: m.Trailing(),
			User:    user,
			Reward:  m.Tags["custom-reward-id"],
			Self:    strings.EqualFold(user, username),
		}
		if err := bus.Publish(c.ctx, c.bus, bus.ChatMessage, msg); err != nil {
			c.log.Error().Err(err).Msg("publish chat message")
		}
	}
}

func (c *Chat) data() data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return data{Data: c.BaseData(), Username: c.username, Channel: c.channel}
}

func (c *Chat) ToData() (json.RawMessage, error) { return json.Marshal(c.data()) }

func (c *Chat) FromData(raw json.RawMessage) error {
	d := c.data()
	if err := module.Decode(Name, raw, &d); err != nil {
		return err
	}
	c.ApplyData(d.Data)
	c.mu.Lock()
	c.username, c.channel = d.Username, d.Channel
	c.mu.Unlock()
	return nil
}

func (c *Chat) Settings() []module.Setting {
	d := c.data()
	return append(c.Base.Settings(),
		module.TextSetting("Username", d.Username),
		module.TextSetting("Channel", d.Channel),
	)
}

func (c *Chat) SetSettings(settings []module.Setting) error {
	_ = c.Base.SetSettings(settings)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range settings {
		switch s.Name {
		case "Username":
			c.username = strings.TrimSpace(s.AsText())
		case "Channel":
			c.channel = strings.TrimSpace(s.AsText())
		}
	}
	return nil
}
