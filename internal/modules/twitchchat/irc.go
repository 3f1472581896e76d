package twitchchat

import "strings"

// ircMessage is one parsed IRCv3 line as sent by Twitch.
type ircMessage struct {
	Tags    map[string]string
	Prefix  string
	Command string
	Params  []string
}

// Nick returns the nickname part of the prefix ("nick!user@host").
func (m ircMessage) Nick() string {
	if i := strings.IndexByte(m.Prefix, '!'); i >= 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// Trailing returns the last parameter.
func (m ircMessage) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// parseLine parses a single line without its CRLF. ok is false for empty or
// command-less lines.
func parseLine(line string) (m ircMessage, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, "@") {
		raw, rest, _ := strings.Cut(line[1:], " ")
		m.Tags = parseTags(raw)
		line = rest
	}
	line = strings.TrimLeft(line, " ")
	if strings.HasPrefix(line, ":") {
		m.Prefix, line, _ = strings.Cut(line[1:], " ")
	}
	for line != "" {
		line = strings.TrimLeft(line, " ")
		if line == "" {
			break
		}
		if line[0] == ':' {
			m.Params = append(m.Params, line[1:])
			break
		}
		var p string
		p, line, _ = strings.Cut(line, " ")
		if m.Command == "" {
			m.Command = strings.ToUpper(p)
			continue
		}
		m.Params = append(m.Params, p)
	}
	return m, m.Command != ""
}

func parseTags(raw string) map[string]string {
	tags := map[string]string{}
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		tags[k] = unescapeTag(v)
	}
	return tags
}

var tagUnescaper = strings.NewReplacer(`\:`, ";", `\s`, " ", `\\`, `\`, `\r`, "\r", `\n`, "\n")

func unescapeTag(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	return tagUnescaper.Replace(v)
}
