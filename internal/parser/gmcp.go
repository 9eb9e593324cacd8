package parser

import (
	"strings"

	"github.com/tidwall/gjson"
)

// SunEvent is the sun transition announced by a GMCP Event.Sun message.
type SunEvent uint8

const (
	SunNone SunEvent = iota
	SunRise
	SunLight
	SunSet
	SunDark
)

func (s SunEvent) String() string {
	return [...]string{"none", "rise", "light", "set", "dark"}[s]
}

// ParseGMCP splits a GMCP line ("Package.Message {json}") into its message
// name and payload. Lines without a payload yield an empty JSON object.
func ParseGMCP(line string) (name string, payload gjson.Result) {
	line = strings.TrimSpace(line)
	name, body, found := strings.Cut(line, " ")
	if !found || !gjson.Valid(body) {
		return name, gjson.Parse("{}")
	}
	return name, gjson.Parse(body)
}

// ParseSunEvent extracts the sun transition from a GMCP line.
//
// Postcondition: Returns SunNone for any other message or an unknown transition.
func ParseSunEvent(line string) SunEvent {
	name, payload := ParseGMCP(line)
	if !strings.EqualFold(name, "Event.Sun") {
		return SunNone
	}
	switch payload.Get("what").String() {
	case "rise":
		return SunRise
	case "light":
		return SunLight
	case "set":
		return SunSet
	case "dark":
		return SunDark
	}
	return SunNone
}
