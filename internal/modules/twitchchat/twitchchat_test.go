package twitchchat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botd/internal/bus"
	"botd/internal/module"
)

type fakeConn struct {
	in        chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	mu      sync.Mutex
	written []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case p := <-c.in:
		return websocket.TextMessage, p, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, string(p))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) SetErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *fakeDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) Conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func newChat(t *testing.T, d *fakeDialer) (*Chat, *bus.Bus) {
	t.Helper()
	b := bus.New()
	c := New(b, Config{
		URL:            "wss://chat.test",
		Username:       "MicheLMD",
		Channel:        "LesMoulinsDuDev",
		Dialer:         d,
		ReconnectDelay: 10 * time.Millisecond,
		MaxReconnects:  3,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Stop(ctx)
	})
	return c, b
}

func TestStartRequiresChatScope(t *testing.T) {
	c, b := newChat(t, &fakeDialer{})
	var scopes []string
	bus.Subscribe(b, bus.RequireScope, func(_ context.Context, s string) error {
		scopes = append(scopes, s)
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"chat:read"}, scopes)
}

func TestTokenTriggersExactlyOneConnect(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))

	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)
	conn := d.Conn(0)
	require.Eventually(t, func() bool { return len(conn.Written()) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands\r\n",
		"PASS oauth:ABC123\r\n",
		"NICK michelmd\r\n",
		"JOIN #lesmoulinsdudev\r\n",
	}, conn.Written())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.Attempts())
	assert.Equal(t, "wss://chat.test", d.urls[0])
}

func TestPrivmsgIsPublished(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	got := make(chan bus.Chat, 4)
	bus.Subscribe(b, bus.ChatMessage, func(_ context.Context, m bus.Chat) error {
		got <- m
		return nil
	})
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)
	conn := d.Conn(0)

	conn.in <- []byte("@badge-info=;custom-reward-id=r-42;display-name=Viewer :viewer!viewer@viewer.tmi.twitch.tv PRIVMSG #lesmoulinsdudev :GG well played\r\n" +
		":michelmd!michelmd@michelmd.tmi.twitch.tv PRIVMSG #lesmoulinsdudev :hello\r\n")

	select {
	case m := <-got:
		assert.Equal(t, bus.Chat{Message: "GG well played", User: "viewer", Reward: "r-42"}, m)
	case <-time.After(2 * time.Second):
		t.Fatal("no chat message")
	}
	select {
	case m := <-got:
		assert.Equal(t, bus.Chat{Message: "hello", User: "michelmd", Self: true}, m)
	case <-time.After(2 * time.Second):
		t.Fatal("no second chat message")
	}
}

func TestPingIsAnswered(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)
	conn := d.Conn(0)
	conn.in <- []byte("PING :tmi.twitch.tv\r\n")
	require.Eventually(t, func() bool {
		w := conn.Written()
		return len(w) == 5 && w[4] == "PONG :tmi.twitch.tv\r\n"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDialFailureIsNotRetried(t *testing.T) {
	d := &fakeDialer{err: errors.New("refused")}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.Attempts())
}

func TestRestartReconnectsWithNewChannel(t *testing.T) {
	d := &fakeDialer{}
	c, b := newChat(t, d)
	ctx := context.Background()
	require.NoError(t, c.Restart(ctx))
	assert.Equal(t, 0, d.Attempts(), "no token yet, no connection")

	require.NoError(t, bus.Publish(ctx, b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.SetSettings([]module.Setting{module.TextSetting("Channel", "#OtherChannel")}))
	require.NoError(t, c.Restart(ctx))
	require.Eventually(t, func() bool { return d.Attempts() == 2 }, 2*time.Second, 5*time.Millisecond)

	first := d.Conn(0)
	select {
	case <-first.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("previous connection not closed")
	}
	second := d.Conn(1)
	require.Eventually(t, func() bool { return len(second.Written()) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "JOIN #otherchannel\r\n", second.Written()[3])
}

func TestServerReconnectRequestDialsAgain(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)

	d.Conn(0).in <- []byte(":tmi.twitch.tv RECONNECT\r\n")
	require.Eventually(t, func() bool { return d.Attempts() == 2 }, 2*time.Second, 5*time.Millisecond)
	second := d.Conn(1)
	require.Eventually(t, func() bool { return len(second.Written()) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "PASS oauth:ABC123\r\n", second.Written()[1])

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, d.Attempts())
}

func TestDroppedConnectionIsReestablished(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)

	_ = d.Conn(0).Close()
	require.Eventually(t, func() bool { return d.Attempts() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	d := &fakeDialer{}
	_, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)

	d.SetErr(errors.New("refused"))
	_ = d.Conn(0).Close()
	require.Eventually(t, func() bool { return d.Attempts() == 4 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 4, d.Attempts())
}

func TestStopDoesNotReconnect(t *testing.T) {
	d := &fakeDialer{}
	c, b := newChat(t, d)
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "DEF456"))
	require.NoError(t, c.Restart(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.Attempts())
}

func TestMissingChannelSkipsConnect(t *testing.T) {
	d := &fakeDialer{}
	b := bus.New()
	c := New(b, Config{URL: "wss://chat.test", Username: "michelmd", Dialer: d})
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	require.NoError(t, bus.Publish(context.Background(), b, bus.Token, "ABC123"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.Attempts())

	require.NoError(t, c.SetSettings([]module.Setting{module.TextSetting("Channel", "lesmoulinsdudev")}))
	require.NoError(t, c.Restart(context.Background()))
	require.Eventually(t, func() bool { return d.Attempts() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDataAndSettings(t *testing.T) {
	c, _ := newChat(t, &fakeDialer{})
	assert.True(t, c.Required())
	require.NoError(t, c.FromData(json.RawMessage(`{"enabled":false,"channel":"stored"}`)))
	assert.True(t, c.Enabled())

	byName := map[string]string{}
	for _, s := range c.Settings() {
		byName[s.Name] = s.Value
	}
	assert.Equal(t, map[string]string{"Username": "MicheLMD", "Channel": "stored"}, byName)

	raw, err := c.ToData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"username":"MicheLMD","channel":"stored"}`, string(raw))
}
