// Package module defines the contract every pluggable bot module implements
// and the shared behaviour (name, required/enabled flags, the "Enabled"
// setting and its persisted form) that concrete modules embed through Base.
package module

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// EnabledSetting is the name of the setting toggling a non-required module.
const EnabledSetting = "Enabled"

// Module is a unit of functionality with its own settings and lifecycle.
// Modules talk to each other only through the bus.
type Module interface {
	Name() string
	Required() bool
	Enabled() bool

	// Start performs side effects such as registering routes. It is called
	// once, concurrently with the other modules' Start.
	Start(ctx context.Context) error
	// Restart is called after the module's settings were updated and saved.
	Restart(ctx context.Context) error

	// ToData returns the persisted record of the module.
	ToData() (json.RawMessage, error)
	// FromData patches the module from a persisted record. Absent fields keep
	// their current values.
	FromData(raw json.RawMessage) error

	// Settings lists the user-editable settings in display order.
	Settings() []Setting
	// SetSettings applies settings matched by name; unknown names are ignored.
	SetSettings(settings []Setting) error
}

// Stopper is implemented by modules holding resources (listeners,
// connections, schedulers) that should be released at shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Data is the part of a persisted record every module shares.
type Data struct {
	Enabled bool `json:"enabled"`
}

// Base carries the name and required/enabled state of a module. Embed a
// *Base in a concrete module to get Name, Required, Enabled and the default
// Start, Restart, ToData, FromData, Settings and SetSettings.
type Base struct {
	name     string
	required bool

	mu      sync.RWMutex
	enabled bool
}

// NewBase returns a Base; required modules start (and stay) enabled.
func NewBase(name string, required bool) *Base {
	return &Base{name: name, required: required, enabled: required}
}

func (b *Base) Name() string   { return b.name }
func (b *Base) Required() bool { return b.required }

func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled updates the enabled flag; required modules ignore false.
func (b *Base) SetEnabled(v bool) {
	b.mu.Lock()
	b.enabled = b.required || v
	b.mu.Unlock()
}

func (b *Base) Start(ctx context.Context) error   { return nil }
func (b *Base) Restart(ctx context.Context) error { return nil }

// BaseData returns the shared part of the persisted record.
func (b *Base) BaseData() Data {
	return Data{Enabled: b.Enabled()}
}

// ApplyData applies the shared part of a persisted record.
func (b *Base) ApplyData(d Data) {
	b.SetEnabled(d.Enabled)
}

func (b *Base) ToData() (json.RawMessage, error) {
	return json.Marshal(b.BaseData())
}

func (b *Base) FromData(raw json.RawMessage) error {
	d := b.BaseData()
	if err := Decode(b.name, raw, &d); err != nil {
		return err
	}
	b.ApplyData(d)
	return nil
}

// Settings returns the Enabled setting for optional modules and nothing for
// required ones. Concrete modules append their own settings after these.
func (b *Base) Settings() []Setting {
	if b.required {
		return nil
	}
	return []Setting{BooleanSetting(EnabledSetting, b.Enabled())}
}

// SetSettings applies the Enabled setting, if present.
func (b *Base) SetSettings(settings []Setting) error {
	for _, s := range settings {
		if s.Name == EnabledSetting {
			b.SetEnabled(s.AsBoolean())
		}
	}
	return nil
}

// Decode unmarshals a persisted record over dst. dst should already hold the
// module's current values so that fields absent from raw keep them.
func Decode(name string, raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s record: %w", name, err)
	}
	return nil
}
