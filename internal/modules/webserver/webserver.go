// Package webserver is the HTTP transport module. Other modules register
// routes and server-push streams on it through the bus (ws_add_route,
// ws_add_stream) and push stream messages with ws_send_on_stream. Once
// listening it announces its address with ws_info.
//
// Changing URI or Port requires a new listener, so Restart asks the host to
// restart the process.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/module"
)

// Name of the module.
const Name = "Web Server"

const defaultMaxBodyBytes = 1 << 20

// Config holds construction defaults.
type Config struct {
	URI          string
	Port         int
	CORSOrigins  []string
	MaxBodyBytes int64
	Logger       *zerolog.Logger
	// Listen defaults to net.Listen.
	Listen func(network, addr string) (net.Listener, error)
}

type Server struct {
	*module.Base

	bus     *bus.Bus
	log     zerolog.Logger
	listen  func(network, addr string) (net.Listener, error)
	routes  *routeTable
	streams *streamHub

	mu   sync.RWMutex
	uri  string
	port int
	srv  *http.Server
	addr net.Addr
}

type data struct {
	module.Data
	URI  string `json:"uri"`
	Port int    `json:"port"`
}

// New constructs the module and subscribes it to the route and stream
// topics, so it must be constructed before modules that publish them.
func New(b *bus.Bus, cfg Config) *Server {
	s := &Server{
		Base:   module.NewBase(Name, true),
		bus:    b,
		listen: cfg.Listen,
		uri:    cfg.URI,
		port:   cfg.Port,
	}
	if s.listen == nil {
		s.listen = net.Listen
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("module", Name).Logger()
	} else {
		s.log = zerolog.Nop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	s.streams = newStreamHub(s.log)
	s.routes = newRouteTable(routerOptions{
		corsOrigins:  cfg.CORSOrigins,
		maxBodyBytes: maxBody,
		log:          s.log,
	})

	bus.Subscribe(b, bus.AddRoute, func(ctx context.Context, r bus.Route) error {
		return s.routes.addRoute(r)
	})
	bus.Subscribe(b, bus.AddStream, func(ctx context.Context, st bus.Stream) error {
		s.streams.open(st.Name)
		return s.routes.add(http.MethodGet, st.URI, s.streams.handler(st.Name))
	})
	bus.Subscribe(b, bus.SendOnStream, func(ctx context.Context, m bus.StreamMessage) error {
		s.streams.send(m.StreamName, m.Message)
		return nil
	})
	return s
}

// ServeHTTP dispatches to the current route table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.routes.ServeHTTP(w, r)
}

// Start binds the listener, serves in the background and publishes ws_info
// with the bound port.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	addr := ":" + strconv.Itoa(s.port)
	ln, err := s.listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	s.srv, s.addr = srv, ln.Addr()
	info := bus.ServerInfo{URI: s.uri, Port: s.port}
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		info.Port = tcp.Port
	}
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("server error")
		}
	}()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return bus.Publish(ctx, s.bus, bus.Info, info)
}

// Restart publishes the restart topic; a new URI or port only takes effect
// in a fresh process.
func (s *Server) Restart(ctx context.Context) error {
	return bus.Publish(ctx, s.bus, bus.Restart, struct{}{})
}

// Stop disconnects stream clients and shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.streams.closeAll()
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) data() data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return data{Data: s.BaseData(), URI: s.uri, Port: s.port}
}

func (s *Server) ToData() (json.RawMessage, error) { return json.Marshal(s.data()) }

func (s *Server) FromData(raw json.RawMessage) error {
	d := s.data()
	if err := module.Decode(Name, raw, &d); err != nil {
		return err
	}
	s.ApplyData(d.Data)
	s.mu.Lock()
	s.uri, s.port = d.URI, d.Port
	s.mu.Unlock()
	return nil
}

func (s *Server) Settings() []module.Setting {
	d := s.data()
	return append(s.Base.Settings(),
		module.TextSetting("URI", d.URI),
		module.TextSetting("Port", strconv.Itoa(d.Port)),
	)
}

// SetSettings validates Port before applying anything.
func (s *Server) SetSettings(settings []module.Setting) error {
	port := -1
	for _, st := range settings {
		if st.Name != "Port" {
			continue
		}
		n, err := st.AsNumber()
		if err != nil {
			return err
		}
		if n < 1 || n > 65535 {
			return module.ErrInvalidSetting("Port", "must be between 1 and 65535")
		}
		port = n
	}
	_ = s.Base.SetSettings(settings)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range settings {
		if st.Name == "URI" {
			s.uri = st.AsText()
		}
	}
	if port > 0 {
		s.port = port
	}
	return nil
}
