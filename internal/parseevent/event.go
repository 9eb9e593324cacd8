// Package parseevent defines the observation record produced for every room
// display the game sends, and the packed flag words it carries.
package parseevent

import (
	"fmt"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// CommandID is the movement command that led to an observation.
type CommandID uint8

const (
	CmdNorth CommandID = iota
	CmdSouth
	CmdEast
	CmdWest
	CmdUp
	CmdDown
	// CmdUnknown is a move whose direction could not be determined.
	CmdUnknown
	// CmdLook is a re-display of the current room.
	CmdLook
	// CmdFlee is a flee in an unknown direction.
	CmdFlee
	// CmdScout shows a neighbouring room without moving.
	CmdScout
	// CmdNone is an observation not caused by any command.
	CmdNone
)

var commandNames = [...]string{"north", "south", "east", "west", "up", "down", "unknown", "look", "flee", "scout", "none"}

func (c CommandID) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// ParseCommand maps a command word to a CommandID.
//
// Postcondition: Returns (CmdNone, false) for unrecognised input.
func ParseCommand(s string) (CommandID, bool) {
	if d, ok := mapdata.ParseDirection(s); ok {
		return CommandFromDirection(d), true
	}
	for i, n := range commandNames {
		if n == s {
			return CommandID(i), true
		}
	}
	switch s {
	case "l", "exa", "examine":
		return CmdLook, true
	}
	return CmdNone, false
}

// CommandFromDirection returns the move command for a direction.
func CommandFromDirection(d mapdata.ExitDirection) CommandID {
	if d.IsNESWUD() {
		return CommandID(d)
	}
	return CmdUnknown
}

// IsDirection reports whether c is one of the six moves.
func (c CommandID) IsDirection() bool { return c <= CmdDown }

// Direction returns the exit direction of a move; Unknown for other commands
// that may still have moved, None for the rest.
func (c CommandID) Direction() mapdata.ExitDirection {
	switch {
	case c.IsDirection():
		return mapdata.ExitDirection(c)
	case c == CmdUnknown || c == CmdFlee:
		return mapdata.Unknown
	default:
		return mapdata.None
	}
}

// MayMove reports whether c can leave the current room.
func (c CommandID) MayMove() bool { return c.IsDirection() || c == CmdUnknown || c == CmdFlee }

// ParseEvent is one observation. It is immutable once constructed.
type ParseEvent struct {
	move           CommandID
	roomName       string
	dynamicDesc    string
	staticDesc     string
	exits          ExitFlags
	prompt         PromptFlags
	connectedRooms ConnectedRoomFlags
	numSkipped     int
}

// New builds an observation.
//
// Postcondition: NumSkipped counts the empty name, the empty static
// description and an invalid prompt.
func New(move CommandID, roomName, dynamicDesc, staticDesc string, exits ExitFlags, prompt PromptFlags, connected ConnectedRoomFlags) *ParseEvent {
	ev := &ParseEvent{
		move:           move,
		roomName:       roomName,
		dynamicDesc:    dynamicDesc,
		staticDesc:     staticDesc,
		exits:          exits.Masked(),
		prompt:         prompt,
		connectedRooms: connected,
	}
	if roomName == "" {
		ev.numSkipped++
	}
	if staticDesc == "" {
		ev.numSkipped++
	}
	if !prompt.IsValid() {
		ev.numSkipped++
	}
	return ev
}

// Dummy returns an observation that carries nothing but its command.
func Dummy(move CommandID) *ParseEvent {
	return New(move, "", "", "", 0, 0, 0)
}

// FromRoom returns the observation a room would produce if displayed after move.
func FromRoom(r *mapdata.Room, move CommandID) *ParseEvent {
	var exits ExitFlags
	for _, d := range mapdata.AllExits {
		exits = exits.Set(d, ExitBits(r.Exit(d)))
	}
	exits = exits.WithValid()

	prompt := NewPromptFlags(r.Terrain)
	if r.Light == mapdata.LightLit {
		prompt = prompt.WithLit()
	}
	prompt = prompt.WithValid()
	return New(move, r.Name, r.DynamicDesc, r.StaticDesc, exits, prompt, 0)
}

func (e *ParseEvent) Move() CommandID { return e.move }
func (e *ParseEvent) RoomName() string { return e.roomName }
func (e *ParseEvent) DynamicDesc() string { return e.dynamicDesc }
func (e *ParseEvent) StaticDesc() string { return e.staticDesc }
func (e *ParseEvent) ExitsFlags() ExitFlags { return e.exits }
func (e *ParseEvent) PromptFlags() PromptFlags { return e.prompt }
func (e *ParseEvent) ConnectedRoomFlags() ConnectedRoomFlags { return e.connectedRooms }

// NumSkipped returns how many identifying fields are missing.
func (e *ParseEvent) NumSkipped() int { return e.numSkipped }

// Query returns the map lookup preselecting rooms for the observation. The
// description only narrows the lookup when the name is missing, so that
// tolerant description matches are left to the comparison.
func (e *ParseEvent) Query() mapdata.Query {
	q := mapdata.Query{Name: e.roomName}
	if q.Name == "" {
		q.Desc = e.staticDesc
	}
	if e.prompt.IsValid() {
		q.Terrain = e.prompt.Terrain()
	}
	return q
}

func (e *ParseEvent) String() string {
	return fmt.Sprintf("%s %q (skipped %d)", e.move, e.roomName, e.numSkipped)
}
