// Package modules assembles the bot's module set.
package modules

import (
	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/config"
	"botd/internal/module"
	"botd/internal/modules/gg"
	"botd/internal/modules/twitchauth"
	"botd/internal/modules/twitchchat"
	"botd/internal/modules/webserver"
	"botd/internal/persistence"
)

// Default constructs every module, subscribed to b, in registration order.
func Default(b *bus.Bus, store persistence.Gateway, cfg config.Config, log *zerolog.Logger) []module.Module {
	return []module.Module{
		webserver.New(b, webserver.Config{
			URI:          cfg.WebServer.URI,
			Port:         cfg.WebServer.Port,
			CORSOrigins:  cfg.WebServer.CORSOrigins,
			MaxBodyBytes: cfg.WebServer.MaxBodyBytes,
			Logger:       log,
		}),
		twitchauth.New(b, twitchauth.Config{
			ClientID:     cfg.Twitch.ClientID,
			ClientSecret: cfg.Twitch.ClientSecret,
			AuthURL:      cfg.Twitch.AuthURL,
			TokenURL:     cfg.Twitch.TokenURL,
			ValidateURL:  cfg.Twitch.ValidateURL,
			Store:        store,
			Logger:       log,
		}),
		twitchchat.New(b, twitchchat.Config{
			URL:      cfg.Twitch.ChatURL,
			Username: cfg.Twitch.Username,
			Channel:  cfg.Twitch.Channel,
			Logger:   log,
		}),
		gg.New(b, gg.Config{
			Reward: cfg.GG.Reward,
			Stream: cfg.GG.Stream,
			Logger: log,
		}),
	}
}
