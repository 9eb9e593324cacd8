// Package pathmachine tracks the player's position on the map by matching
// each observation against candidate rooms and, in map mode, growing the map
// when nothing matches.
package pathmachine

import (
	"fmt"

	"github.com/MUME/MMapper-sub000/internal/config"
)

// Params tunes candidate scoring.
type Params struct {
	AcceptBestRelative         float64
	AcceptBestAbsolute         float64
	NewRoomPenalty             float64
	CorrectPositionBonus       float64
	MultipleConnectionsPenalty float64
	MaxPaths                   int
	MatchingTolerance          int
	MaxSkipped                 int
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		AcceptBestRelative:         25,
		AcceptBestAbsolute:         6,
		NewRoomPenalty:             5,
		CorrectPositionBonus:       5,
		MultipleConnectionsPenalty: 2,
		MaxPaths:                   1000,
		MatchingTolerance:          8,
		MaxSkipped:                 1,
	}
}

// ParamsFromConfig copies the configured tuning.
func ParamsFromConfig(c config.PathMachineConfig) Params {
	return Params{
		AcceptBestRelative:         c.AcceptBestRelative,
		AcceptBestAbsolute:         c.AcceptBestAbsolute,
		NewRoomPenalty:             c.NewRoomPenalty,
		CorrectPositionBonus:       c.CorrectPositionBonus,
		MultipleConnectionsPenalty: c.MultipleConnectionsPenalty,
		MaxPaths:                   c.MaxPaths,
		MatchingTolerance:          c.MatchingTolerance,
		MaxSkipped:                 c.MaxSkipped,
	}
}

// Mode decides whether the machine may change the map.
type Mode uint8

const (
	// ModePlay follows the player without touching the map.
	ModePlay Mode = iota
	// ModeMap creates rooms and exits as the player explores.
	ModeMap
	// ModeOffline replays against a fixed map.
	ModeOffline
)

func (m Mode) String() string {
	switch m {
	case ModePlay:
		return "play"
	case ModeMap:
		return "map"
	case ModeOffline:
		return "offline"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode resolves a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "play":
		return ModePlay, nil
	case "map":
		return ModeMap, nil
	case "offline":
		return ModeOffline, nil
	}
	return ModePlay, fmt.Errorf("unknown mapper mode %q", s)
}

// State is the machine's confidence about the current room.
type State uint8

const (
	// StateSyncing means the position is unknown.
	StateSyncing State = iota
	// StateApproved means exactly one room is confirmed.
	StateApproved
	// StateExperimenting means several candidate paths are alive.
	StateExperimenting
)

func (s State) String() string {
	return [...]string{"syncing", "approved", "experimenting"}[s]
}
