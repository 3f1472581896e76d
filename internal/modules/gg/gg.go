// Package gg relays "GG" channel point redemptions to the overlay stream.
package gg

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/module"
)

// Name of the module.
const Name = "GG"

const defaultStream = "obs"

// Config holds construction defaults.
type Config struct {
	// Reward is the custom reward id to react to.
	Reward string
	// Stream receives the overlay messages. Defaults to "obs".
	Stream string
	Logger *zerolog.Logger
}

type GG struct {
	*module.Base

	bus *bus.Bus
	log zerolog.Logger

	mu     sync.RWMutex
	reward string
	stream string
}

type data struct {
	module.Data
	Reward string `json:"reward"`
}

// overlayMessage is the JSON document pushed on the stream.
type overlayMessage struct {
	Module string      `json:"module"`
	Data   overlayData `json:"data"`
}

type overlayData struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// New constructs the module, disabled, and subscribes it to tw_message.
func New(b *bus.Bus, cfg Config) *GG {
	g := &GG{
		Base:   module.NewBase(Name, false),
		bus:    b,
		reward: cfg.Reward,
		stream: cfg.Stream,
	}
	if g.stream == "" {
		g.stream = defaultStream
	}
	if cfg.Logger != nil {
		g.log = cfg.Logger.With().Str("module", Name).Logger()
	} else {
		g.log = zerolog.Nop()
	}
	bus.Subscribe(b, bus.ChatMessage, g.onChat)
	return g
}

func (g *GG) onChat(ctx context.Context, m bus.Chat) error {
	g.mu.RLock()
	reward, stream := g.reward, g.stream
	g.mu.RUnlock()
	if !g.Enabled() || reward == "" || m.Reward != reward {
		return nil
	}
	body, err := json.Marshal(overlayMessage{
		Module: "gg",
		Data:   overlayData{Username: m.User, Message: m.Message},
	})
	if err != nil {
		return err
	}
	g.log.Debug().Str("user", m.User).Msg("gg redeemed")
	return bus.Publish(ctx, g.bus, bus.SendOnStream, bus.StreamMessage{StreamName: stream, Message: string(body)})
}

func (g *GG) data() data {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return data{Data: g.BaseData(), Reward: g.reward}
}

func (g *GG) ToData() (json.RawMessage, error) { return json.Marshal(g.data()) }

func (g *GG) FromData(raw json.RawMessage) error {
	d := g.data()
	if err := module.Decode(Name, raw, &d); err != nil {
		return err
	}
	g.ApplyData(d.Data)
	g.mu.Lock()
	g.reward = d.Reward
	g.mu.Unlock()
	return nil
}

func (g *GG) Settings() []module.Setting {
	return append(g.Base.Settings(), module.TextSetting("Reward", g.data().Reward))
}

func (g *GG) SetSettings(settings []module.Setting) error {
	_ = g.Base.SetSettings(settings)
	for _, s := range settings {
		if s.Name == "Reward" {
			g.mu.Lock()
			g.reward = strings.TrimSpace(s.AsText())
			g.mu.Unlock()
		}
	}
	return nil
}
