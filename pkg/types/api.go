package types

// ModuleSettings maps a module name to its settings for GET /modules.
// Modules without configurable settings are omitted.
type ModuleSettings map[string][]Setting

// Setting is the wire shape of a module setting.
type Setting struct {
	// Name of the setting, unique within its module.
	// example: Port
	Name string `json:"name" example:"Port"`
	// Value encoded as text.
	// example: 4000
	Value string `json:"value" example:"4000"`
	// One of text, link, boolean, tags.
	// example: text
	Type string `json:"type" example:"text" enums:"text,link,boolean,tags"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModuleStatus summarizes one registered module for /status.
type ModuleStatus struct {
	// Module name.
	// example: Web Server
	Name string `json:"name" example:"Web Server"`
	// Required modules cannot be disabled.
	Required bool `json:"required"`
	// Whether the module is enabled.
	Enabled bool `json:"enabled"`
	// Whether Start returned without error.
	Started bool `json:"started"`
	// Start error, if any.
	Error string `json:"error,omitempty"`
}

// StatusResponse is the payload of GET /status.
type StatusResponse struct {
	// Registry lifecycle state (e.g., loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// First start error, if any.
	Error string `json:"error,omitempty"`
	// Registered modules in registration order.
	Modules []ModuleStatus `json:"modules"`
}
