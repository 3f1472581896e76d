package bus

import (
	"context"
	"net/http"
	"net/url"
)

// Fixed topic contract. Each topic carries exactly one payload type.
var (
	// Restart asks the host process to exit so its supervisor relaunches it.
	Restart = Topic[struct{}]{name: "restart"}

	// AddRoute registers an HTTP route on the web server.
	AddRoute = Topic[Route]{name: "ws_add_route"}
	// AddStream opens a server-push stream (SSE or WebSocket) at a URI.
	AddStream = Topic[Stream]{name: "ws_add_stream"}
	// SendOnStream pushes a message to every client of a named stream.
	SendOnStream = Topic[StreamMessage]{name: "ws_send_on_stream"}
	// Info announces where the web server can be reached.
	Info = Topic[ServerInfo]{name: "ws_info"}

	// RequireScope adds a Twitch OAuth scope to the requested set.
	RequireScope = Topic[string]{name: "tw_require_scope"}
	// Token carries the current Twitch access token.
	Token = Topic[string]{name: "tw_token"}
	// ChatMessage carries one message received on Twitch chat.
	ChatMessage = Topic[Chat]{name: "tw_message"}
)

// Request is the transport-neutral view of an incoming HTTP request.
type Request struct {
	Query  url.Values
	Params map[string]string
	Header http.Header
	Body   []byte
}

// Response is what a RouteHandler returns. Zero StatusCode means 200 and an
// empty ContentType means text/plain.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// RouteHandler serves one registered route.
type RouteHandler func(ctx context.Context, req Request) (Response, error)

// Route is the ws_add_route payload. URL accepts chi patterns ("{name}") and
// colon parameters (":name").
type Route struct {
	URL     string
	Method  string
	Handler RouteHandler
}

// Stream is the ws_add_stream payload.
type Stream struct {
	Name string
	URI  string
}

// StreamMessage is the ws_send_on_stream payload.
type StreamMessage struct {
	StreamName string
	Message    string
}

// ServerInfo is the ws_info payload.
type ServerInfo struct {
	URI  string
	Port int
}

// Chat is the tw_message payload.
type Chat struct {
	Message string
	User    string
	Reward  string
	Self    bool
}
