// Package session replays recorded game output through the parser, the clock
// and the path machine. A recording is a YAML document listing what the game
// printed, step by step.
package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MUME/MMapper-sub000/internal/parseevent"
	"github.com/MUME/MMapper-sub000/internal/pathmachine"
)

// ErrEmptyStep is returned for a step that carries no output at all.
var ErrEmptyStep = errors.New("step has no content")

// Recording is a sequence of game output captured during one session.
type Recording struct {
	// Start is the real Unix second of the first step.
	Start int64  `yaml:"start"`
	Steps []Step `yaml:"steps"`
}

// Step is one piece of game output. Exactly one of Room, Time, Clock,
// Weather, GMCP or Mode is set.
type Step struct {
	// After is the real time elapsed since the previous step.
	After time.Duration `yaml:"after,omitempty"`

	Room    *RoomOutput `yaml:"room,omitempty"`
	Time    string      `yaml:"time,omitempty"`
	Clock   string      `yaml:"clock,omitempty"`
	Weather string      `yaml:"weather,omitempty"`
	GMCP    string      `yaml:"gmcp,omitempty"`
	Mode    string      `yaml:"mode,omitempty"`
}

// RoomOutput is a room display following a command.
type RoomOutput struct {
	Move    string `yaml:"move"`
	Name    string `yaml:"name,omitempty"`
	Desc    string `yaml:"desc,omitempty"`
	Dynamic string `yaml:"dynamic,omitempty"`
	Exits   string `yaml:"exits,omitempty"`
	Prompt  string `yaml:"prompt,omitempty"`
}

func (s Step) kind() string {
	switch {
	case s.Room != nil:
		return "room"
	case s.Time != "":
		return "time"
	case s.Clock != "":
		return "clock"
	case s.Weather != "":
		return "weather"
	case s.GMCP != "":
		return "gmcp"
	case s.Mode != "":
		return "mode"
	}
	return ""
}

// LoadFile reads and validates a recording.
//
// Precondition: path must point to a YAML recording.
// Postcondition: Returns a recording whose every step is well formed, or a non-nil error.
func LoadFile(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates a recording.
func LoadBytes(data []byte) (*Recording, error) {
	var doc struct {
		Session Recording `yaml:"session"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing session YAML: %w", err)
	}
	rec := &doc.Session
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks that every step carries exactly one kind of output with
// known command and mode names.
func (r *Recording) Validate() error {
	for i, s := range r.Steps {
		set := 0
		for _, present := range []bool{s.Room != nil, s.Time != "", s.Clock != "", s.Weather != "", s.GMCP != "", s.Mode != ""} {
			if present {
				set++
			}
		}
		switch {
		case set == 0:
			return fmt.Errorf("step %d: %w", i, ErrEmptyStep)
		case set > 1:
			return fmt.Errorf("step %d: more than one kind of output", i)
		case s.After < 0:
			return fmt.Errorf("step %d: negative delay %s", i, s.After)
		}
		if s.Room != nil {
			if _, ok := parseevent.ParseCommand(s.Room.Move); !ok {
				return fmt.Errorf("step %d: unknown move %q", i, s.Room.Move)
			}
		}
		if s.Mode != "" {
			if _, err := pathmachine.ParseMode(s.Mode); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return nil
}
