// Package httpapi exposes module settings and registry status over HTTP.
// Routes are registered on the web server module through the bus, so the
// package holds no listener of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/module"
	"botd/internal/modules/webserver"
	"botd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListSettings() map[string][]module.Setting
	UpdateSettings(ctx context.Context, name string, settings []module.Setting) error
	Status() types.StatusResponse
	Ready() bool
}

type api struct {
	svc Service
	log zerolog.Logger
}

// Register publishes the API routes on b. The web server module must already
// be subscribed.
func Register(ctx context.Context, b *bus.Bus, svc Service, log *zerolog.Logger) error {
	a := &api{svc: svc, log: zerolog.Nop()}
	if log != nil {
		a.log = *log
	}
	routes := []bus.Route{
		{URL: "/modules", Method: http.MethodGet, Handler: a.listModules},
		{URL: "/modules/:moduleName", Method: http.MethodPost, Handler: a.updateModule},
		{URL: "/status", Method: http.MethodGet, Handler: a.status},
		{URL: "/readyz", Method: http.MethodGet, Handler: a.readyz},
	}
	for _, r := range routes {
		if err := bus.Publish(ctx, b, bus.AddRoute, r); err != nil {
			return fmt.Errorf("register %s %s: %w", r.Method, r.URL, err)
		}
	}
	return nil
}

// listModules godoc
// @Summary      List module settings
// @Description  Settings of every module exposing at least one, keyed by module name.
// @Tags         modules
// @Produce      json
// @Success      200  {object}  types.ModuleSettings
// @Router       /modules [get]
func (a *api) listModules(ctx context.Context, _ bus.Request) (bus.Response, error) {
	out := types.ModuleSettings{}
	for name, settings := range a.svc.ListSettings() {
		out[name] = toWire(settings)
	}
	return jsonResponse(http.StatusOK, out)
}

// updateModule godoc
// @Summary      Update module settings
// @Description  Applies the settings, saves the module record and restarts the module. Unknown module names are ignored.
// @Tags         modules
// @Accept       json
// @Produce      json
// @Param        moduleName  path  string         true  "Module name"
// @Param        settings    body  []types.Setting true  "Settings to apply"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /modules/{moduleName} [post]
func (a *api) updateModule(ctx context.Context, req bus.Request) (bus.Response, error) {
	name := req.Params["moduleName"]
	var in []types.Setting
	if err := json.Unmarshal(req.Body, &in); err != nil {
		return bus.Response{}, webserver.Error(http.StatusBadRequest, "invalid JSON body")
	}
	settings, err := fromWire(in)
	if err != nil {
		return bus.Response{}, webserver.Error(http.StatusBadRequest, err.Error())
	}
	if err := a.svc.UpdateSettings(ctx, name, settings); err != nil {
		if module.IsInvalidSetting(err) {
			return bus.Response{}, webserver.Error(http.StatusBadRequest, err.Error())
		}
		a.log.Error().Err(err).Str("module", name).Msg("settings update failed")
		return bus.Response{}, err
	}
	return jsonResponse(http.StatusOK, struct{}{})
}

// status godoc
// @Summary      Registry status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (a *api) status(ctx context.Context, _ bus.Request) (bus.Response, error) {
	return jsonResponse(http.StatusOK, a.svc.Status())
}

// readyz godoc
// @Summary      Readiness probe
// @Tags         status
// @Success      200
// @Failure      503
// @Router       /readyz [get]
func (a *api) readyz(ctx context.Context, _ bus.Request) (bus.Response, error) {
	if a.svc.Ready() {
		return bus.Response{StatusCode: http.StatusOK, Body: []byte("ready")}, nil
	}
	return bus.Response{StatusCode: http.StatusServiceUnavailable, Body: []byte("loading")}, nil
}

func toWire(settings []module.Setting) []types.Setting {
	out := make([]types.Setting, 0, len(settings))
	for _, s := range settings {
		out = append(out, types.Setting{Name: s.Name, Value: s.Value, Type: string(s.Type)})
	}
	return out
}

func fromWire(in []types.Setting) ([]module.Setting, error) {
	out := make([]module.Setting, 0, len(in))
	for _, s := range in {
		t := module.SettingType(s.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("setting %q: unknown type %q", s.Name, s.Type)
		}
		out = append(out, module.Setting{Name: s.Name, Value: s.Value, Type: t})
	}
	return out, nil
}

func jsonResponse(status int, v any) (bus.Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.Response{StatusCode: status, ContentType: "application/json", Body: b}, nil
}
