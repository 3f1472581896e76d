package module

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBooleanSettingRoundTrip(t *testing.T) {
	s := BooleanSetting("X", true)
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Setting
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.AsBoolean() {
		t.Fatalf("expected true, got %q", back.Value)
	}
	if back.Type != TypeBoolean {
		t.Fatalf("type=%q", back.Type)
	}
	if BooleanSetting("X", false).Value != "false" {
		t.Fatalf("false encoding")
	}
}

func TestTagsSetting(t *testing.T) {
	s := TagsSetting("T", []string{"a", "b"})
	if s.Value != "a,b" {
		t.Fatalf("value=%q", s.Value)
	}
	if got := s.AsTags(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("tags=%v", got)
	}
	if got := TagsSetting("T", nil).AsTags(); len(got) != 0 {
		t.Fatalf("empty tags=%v", got)
	}
}

func TestAsNumber(t *testing.T) {
	n, err := TextSetting("Port", " 4000 ").AsNumber()
	if err != nil || n != 4000 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	_, err = TextSetting("Port", "40x").AsNumber()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsInvalidSetting(err) {
		t.Fatalf("expected invalid setting error, got %v", err)
	}
}

func TestAsBooleanStrict(t *testing.T) {
	cases := map[string]bool{"true": true, "false": false, "TRUE": false, "1": false, "": false}
	for in, want := range cases {
		if got := (Setting{Value: in}).AsBoolean(); got != want {
			t.Fatalf("AsBoolean(%q)=%v want %v", in, got, want)
		}
	}
}

func TestSettingWireShape(t *testing.T) {
	b, err := json.Marshal(LinkSetting("Link", "https://example.test"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"Link","value":"https://example.test","type":"link"}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}
}

func TestSettingTypeValid(t *testing.T) {
	for _, st := range []SettingType{TypeText, TypeLink, TypeBoolean, TypeTags} {
		if !st.Valid() {
			t.Fatalf("%q should be valid", st)
		}
	}
	if SettingType("number").Valid() {
		t.Fatalf("number should be invalid")
	}
}
