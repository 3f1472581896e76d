// Package twitchauth obtains and maintains the Twitch user access token.
//
// Other modules declare the OAuth scopes they need on tw_require_scope. The
// "Link" setting points the user at Twitch's authorize page with those scopes;
// Twitch redirects back to GET /twitch/auth, where the code is exchanged for a
// token that is persisted and broadcast on tw_token. The token is validated
// when the module starts and then hourly, refreshing the available scopes.
package twitchauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"botd/internal/bus"
	"botd/internal/module"
	"botd/internal/persistence"
)

// Name of the module.
const Name = "Twitch Authentication"

// CallbackPath is the route Twitch redirects to after authorization.
const CallbackPath = "/twitch/auth"

const defaultSchedule = "@every 1h"

// Config holds application credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	ValidateURL  string
	// Schedule of token validation, in cron syntax. Defaults to hourly.
	Schedule   string
	Store      persistence.Gateway
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

type Auth struct {
	*module.Base

	bus    *bus.Bus
	cfg    Config
	log    zerolog.Logger
	client *http.Client
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	token     string
	required  []string
	available []string
	info      *bus.ServerInfo
}

type data struct {
	module.Data
	Token           string   `json:"token"`
	AvailableScopes []string `json:"availableScopes"`
}

// New constructs the module and subscribes it to tw_require_scope and
// ws_info.
func New(b *bus.Bus, cfg Config) *Auth {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if cfg.Store == nil {
		cfg.Store = persistence.NewMemoryStore()
	}
	a := &Auth{
		Base:   module.NewBase(Name, true),
		bus:    b,
		cfg:    cfg,
		client: cfg.HTTPClient,
		cron:   cron.New(),
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger != nil {
		a.log = cfg.Logger.With().Str("module", Name).Logger()
	} else {
		a.log = zerolog.Nop()
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	bus.Subscribe(b, bus.RequireScope, func(_ context.Context, scope string) error {
		a.requireScope(scope)
		return nil
	})
	bus.Subscribe(b, bus.Info, func(_ context.Context, info bus.ServerInfo) error {
		a.mu.Lock()
		a.info = &info
		a.mu.Unlock()
		return nil
	})
	return a
}

func (a *Auth) requireScope(scope string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !slices.Contains(a.required, scope) {
		a.required = append(a.required, scope)
	}
}

// Token returns the current access token.
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Start registers the callback route, re-broadcasts a stored token and
// schedules validation.
func (a *Auth) Start(ctx context.Context) error {
	err := bus.Publish(ctx, a.bus, bus.AddRoute, bus.Route{
		URL:     CallbackPath,
		Method:  http.MethodGet,
		Handler: a.handleCallback,
	})
	if err != nil {
		return err
	}
	if _, err := a.cron.AddFunc(a.cfg.Schedule, func() { a.validate(a.ctx) }); err != nil {
		return fmt.Errorf("schedule validation: %w", err)
	}
	a.cron.Start()

	if tok := a.Token(); tok != "" {
		go a.validate(a.ctx)
		return bus.Publish(ctx, a.bus, bus.Token, tok)
	}
	return nil
}

// Stop halts scheduled validation.
func (a *Auth) Stop(ctx context.Context) error {
	a.cancel()
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (a *Auth) handleCallback(ctx context.Context, req bus.Request) (bus.Response, error) {
	if code := req.Query.Get("code"); code != "" {
		a.exchange(ctx, code)
	} else {
		a.log.Warn().Str("error", req.Query.Get("error")).Msg("authorization callback without code")
	}
	return bus.Response{
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Body:        []byte(`<script>window.close()</script>`),
	}, nil
}

// exchange trades an authorization code for a token. Failures are logged and
// leave the current token in place.
func (a *Auth) exchange(ctx context.Context, code string) {
	oc, ok := a.oauthConfig()
	if !ok {
		a.log.Error().Msg("token exchange before the web server announced its address")
		return
	}
	tok, err := oc.Exchange(context.WithValue(ctx, oauth2.HTTPClient, a.client), code)
	if err != nil {
		a.log.Error().Err(err).Msg("token exchange failed")
		return
	}
	a.mu.Lock()
	a.token = tok.AccessToken
	a.available = slices.Clone(a.required)
	a.mu.Unlock()
	a.log.Info().Msg("token obtained")

	a.validate(ctx)
	if err := bus.Publish(ctx, a.bus, bus.Token, tok.AccessToken); err != nil {
		a.log.Error().Err(err).Msg("publish token")
	}
	a.save(ctx)
}

func (a *Auth) save(ctx context.Context) {
	raw, err := a.ToData()
	if err == nil {
		err = a.cfg.Store.Save(ctx, Name, raw)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("save token")
	}
}

type validateResponse struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

// validate checks the current token against Twitch and records the scopes it
// grants.
func (a *Auth) validate(ctx context.Context) {
	tok := a.Token()
	if tok == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.ValidateURL, nil)
	if err != nil {
		a.log.Error().Err(err).Msg("build validate request")
		return
	}
	req.Header.Set("Authorization", "OAuth "+tok)
	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Error().Err(err).Msg("token validation failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Msg("token rejected")
		return
	}
	var v validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		a.log.Error().Err(err).Msg("decode validate response")
		return
	}
	a.mu.Lock()
	a.available = v.Scopes
	a.mu.Unlock()
	a.log.Debug().Str("login", v.Login).Int("expires_in", v.ExpiresIn).Strs("scopes", v.Scopes).Msg("token valid")
}

// oauthConfig builds the OAuth client configuration; the redirect URI depends
// on the announced web server address.
func (a *Auth) oauthConfig() (*oauth2.Config, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.info == nil {
		return nil, false
	}
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.cfg.AuthURL,
			TokenURL:  a.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: a.info.URI + ":" + strconv.Itoa(a.info.Port) + CallbackPath,
		Scopes:      slices.Clone(a.required),
	}, true
}

// Link returns the authorize URL, or "" until the web server address is
// known.
func (a *Auth) Link() string {
	oc, ok := a.oauthConfig()
	if !ok {
		return ""
	}
	return oc.AuthCodeURL("")
}

func (a *Auth) data() data {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return data{Data: a.BaseData(), Token: a.token, AvailableScopes: slices.Clone(a.available)}
}

func (a *Auth) ToData() (json.RawMessage, error) { return json.Marshal(a.data()) }

func (a *Auth) FromData(raw json.RawMessage) error {
	d := a.data()
	if err := module.Decode(Name, raw, &d); err != nil {
		return err
	}
	a.ApplyData(d.Data)
	a.mu.Lock()
	a.token, a.available = d.Token, d.AvailableScopes
	a.mu.Unlock()
	return nil
}

// Settings exposes the authorize link and scopes; none of them are editable.
func (a *Auth) Settings() []module.Setting {
	a.mu.RLock()
	required, available := slices.Clone(a.required), slices.Clone(a.available)
	a.mu.RUnlock()
	return append(a.Base.Settings(),
		module.LinkSetting("Link", a.Link()),
		module.TagsSetting("Required scopes", required),
		module.TagsSetting("Available scopes", available),
	)
}
