package twitchchat

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want ircMessage
	}{
		{
			name: "ping",
			in:   "PING :tmi.twitch.tv\r\n",
			want: ircMessage{Command: "PING", Params: []string{"tmi.twitch.tv"}},
		},
		{
			name: "privmsg with tags",
			in:   `@custom-reward-id=abc;display-name=Some\sOne;emotes= :someone!someone@someone.tmi.twitch.tv PRIVMSG #chan :hi there`,
			want: ircMessage{
				Tags:    map[string]string{"custom-reward-id": "abc", "display-name": "Some One", "emotes": ""},
				Prefix:  "someone!someone@someone.tmi.twitch.tv",
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hi there"},
			},
		},
		{
			name: "numeric with middle params",
			in:   ":tmi.twitch.tv 001 michelmd :Welcome, GLHF!",
			want: ircMessage{Prefix: "tmi.twitch.tv", Command: "001", Params: []string{"michelmd", "Welcome, GLHF!"}},
		},
		{
			name: "escaped tag value",
			in:   `@msg=a\:b\\c PRIVMSG #c :x`,
			want: ircMessage{Tags: map[string]string{"msg": `a;b\c`}, Command: "PRIVMSG", Params: []string{"#c", "x"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseLine(tc.in)
			if !ok {
				t.Fatalf("parseLine(%q) not ok", tc.in)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parseLine(%q)\n got %#v\nwant %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseLine_Empty(t *testing.T) {
	for _, in := range []string{"", "\r\n", "   ", "@a=b"} {
		if _, ok := parseLine(in); ok {
			t.Fatalf("parseLine(%q) should not be ok", in)
		}
	}
}

func TestNick(t *testing.T) {
	if got := (ircMessage{Prefix: "a!b@c"}).Nick(); got != "a" {
		t.Fatalf("nick=%q", got)
	}
	if got := (ircMessage{Prefix: "tmi.twitch.tv"}).Nick(); got != "tmi.twitch.tv" {
		t.Fatalf("nick=%q", got)
	}
}
