package module

import (
	"fmt"
	"strconv"
	"strings"
)

// SettingType tells a UI how to render and edit a setting value.
type SettingType string

const (
	TypeText    SettingType = "text"
	TypeLink    SettingType = "link"
	TypeBoolean SettingType = "boolean"
	TypeTags    SettingType = "tags"
)

// Valid reports whether t is one of the known setting types.
func (t SettingType) Valid() bool {
	switch t {
	case TypeText, TypeLink, TypeBoolean, TypeTags:
		return true
	}
	return false
}

// Setting is a named, user-editable value. The value is always kept as text;
// the As* accessors interpret it. The struct is also the wire shape used by
// the HTTP API.
type Setting struct {
	Name  string      `json:"name"`
	Value string      `json:"value"`
	Type  SettingType `json:"type"`
}

func TextSetting(name, value string) Setting {
	return Setting{Name: name, Value: value, Type: TypeText}
}

func LinkSetting(name, value string) Setting {
	return Setting{Name: name, Value: value, Type: TypeLink}
}

func BooleanSetting(name string, value bool) Setting {
	return Setting{Name: name, Value: strconv.FormatBool(value), Type: TypeBoolean}
}

// TagsSetting joins values with commas. Tags must not contain commas.
func TagsSetting(name string, values []string) Setting {
	return Setting{Name: name, Value: strings.Join(values, ","), Type: TypeTags}
}

// AsBoolean is true only for the exact text "true".
func (s Setting) AsBoolean() bool { return s.Value == "true" }

func (s Setting) AsText() string { return s.Value }

// AsNumber parses the value as a base-10 integer. Surrounding spaces are
// tolerated; anything else is an InvalidSetting error.
func (s Setting) AsNumber() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s.Value))
	if err != nil {
		return 0, ErrInvalidSetting(s.Name, fmt.Sprintf("%q is not a number", s.Value))
	}
	return n, nil
}

// AsTags splits the value on commas. An empty value yields no tags.
func (s Setting) AsTags() []string {
	if s.Value == "" {
		return nil
	}
	return strings.Split(s.Value, ",")
}
