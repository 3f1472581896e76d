package module

import (
	"encoding/json"
	"testing"
)

func TestRequiredStaysEnabled(t *testing.T) {
	b := NewBase("Web Server", true)
	if err := b.SetSettings([]Setting{BooleanSetting(EnabledSetting, false)}); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	if !b.Enabled() {
		t.Fatalf("required module must stay enabled")
	}
	if err := b.FromData(json.RawMessage(`{"enabled":false}`)); err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if !b.Enabled() {
		t.Fatalf("required module must stay enabled after FromData")
	}
}

func TestOptionalModuleToggles(t *testing.T) {
	b := NewBase("GG", false)
	if b.Enabled() {
		t.Fatalf("optional module starts disabled")
	}
	_ = b.SetSettings([]Setting{BooleanSetting(EnabledSetting, true), TextSetting("Unknown", "x")})
	if !b.Enabled() {
		t.Fatalf("expected enabled")
	}
	_ = b.FromData(json.RawMessage(`{"enabled":false}`))
	if b.Enabled() {
		t.Fatalf("expected disabled")
	}
}

func TestFromDataAbsentFieldKeepsValue(t *testing.T) {
	b := NewBase("GG", false)
	b.SetEnabled(true)
	if err := b.FromData(json.RawMessage(`{"somethingElse":1}`)); err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if !b.Enabled() {
		t.Fatalf("absent enabled field must keep current value")
	}
	if err := b.FromData(nil); err != nil {
		t.Fatalf("empty record: %v", err)
	}
}

func TestFromDataRejectsGarbage(t *testing.T) {
	b := NewBase("GG", false)
	if err := b.FromData(json.RawMessage(`[1,2`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestBaseSettings(t *testing.T) {
	if s := NewBase("Req", true).Settings(); len(s) != 0 {
		t.Fatalf("required module should expose no base settings, got %+v", s)
	}
	s := NewBase("Opt", false).Settings()
	if len(s) != 1 || s[0].Name != EnabledSetting || s[0].Type != TypeBoolean || s[0].Value != "false" {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestBaseToData(t *testing.T) {
	raw, err := NewBase("Req", true).ToData()
	if err != nil {
		t.Fatalf("ToData: %v", err)
	}
	if string(raw) != `{"enabled":true}` {
		t.Fatalf("raw=%s", raw)
	}
}
