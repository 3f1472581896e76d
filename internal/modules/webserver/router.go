package webserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"botd/internal/bus"
)

type routerOptions struct {
	corsOrigins  []string
	maxBodyBytes int64
	log          zerolog.Logger
}

type routeEntry struct {
	method  string
	pattern string
	handler http.Handler
}

// routeTable holds the routes registered over the bus. chi routers cannot be
// extended once serving, so every registration builds a new router and swaps
// it in.
type routeTable struct {
	opts routerOptions

	mu      sync.Mutex
	entries []routeEntry
	mux     atomic.Pointer[chi.Mux]
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

func newRouteTable(opts routerOptions) *routeTable {
	t := &routeTable{opts: opts}
	t.mux.Store(t.build(nil))
	return t
}

func (t *routeTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mux.Load().ServeHTTP(w, r)
}

// addRoute registers a bus route.
func (t *routeTable) addRoute(r bus.Route) error {
	if r.Handler == nil {
		return fmt.Errorf("route %s %s: nil handler", r.Method, r.URL)
	}
	return t.add(r.Method, r.URL, routeHandler(r.Handler, t.opts.maxBodyBytes))
}

func (t *routeTable) add(method, url string, h http.Handler) error {
	method = strings.ToUpper(method)
	if !supportedMethods[method] {
		return fmt.Errorf("route %s %s: unsupported method", method, url)
	}
	pattern := chiPattern(url)
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("route %s %s: path must begin with /", method, url)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := append(t.entries, routeEntry{method: method, pattern: pattern, handler: h})
	mux, err := t.safeBuild(entries)
	if err != nil {
		return fmt.Errorf("route %s %s: %w", method, url, err)
	}
	t.entries = entries
	t.mux.Store(mux)
	t.opts.log.Debug().Str("method", method).Str("path", pattern).Msg("route added")
	return nil
}

// safeBuild turns chi's registration panics (conflicting wildcards and the
// like) into errors.
func (t *routeTable) safeBuild(entries []routeEntry) (mux *chi.Mux, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return t.build(entries), nil
}

func (t *routeTable) build(entries []routeEntry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(t.opts.log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	origins := t.opts.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	MountSwagger(r)

	for _, e := range entries {
		r.Method(e.method, e.pattern, e.handler)
	}
	return r
}

// chiPattern rewrites ":name" path segments as chi "{name}" parameters.
func chiPattern(url string) string {
	segs := strings.Split(url, "/")
	for i, s := range segs {
		if len(s) > 1 && s[0] == ':' {
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/")
}

// routeHandler adapts a bus RouteHandler to net/http.
func routeHandler(h bus.RouteHandler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		req := bus.Request{
			Query:  r.URL.Query(),
			Params: map[string]string{},
			Header: r.Header,
			Body:   body,
		}
		if rc := chi.RouteContext(r.Context()); rc != nil {
			for i, k := range rc.URLParams.Keys {
				if k == "*" {
					continue
				}
				req.Params[k] = rc.URLParams.Values[i]
			}
		}
		resp, err := h(r.Context(), req)
		if err != nil {
			var he HTTPError
			if errors.As(err, &he) {
				writeJSONError(w, he.StatusCode(), he.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ct := resp.ContentType
		if ct == "" {
			ct = "text/plain; charset=utf-8"
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(status)
		_, _ = w.Write(resp.Body)
	})
}

// accessLog writes one structured line per request.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
