// Package mapdata provides the room map model: rooms, exits, coordinates, and the
// in-memory map store the room matcher reads from and mutates through actions.
package mapdata

import (
	"fmt"
	"math"
	"slices"
)

// RoomID is the session-local handle of a room. IDs are never reused while a
// map is loaded, so a stale ID resolves to "not found" instead of another room.
type RoomID uint32

// InvalidRoomID marks the absence of a room.
const InvalidRoomID RoomID = math.MaxUint32

// ServerRoomID is the identifier the game server reports for a room, if any.
type ServerRoomID uint32

// InvalidServerRoomID marks a room whose server id is unknown.
const InvalidServerRoomID ServerRoomID = 0

// RoomIDSet is a small sorted set of room ids.
type RoomIDSet []RoomID

// Contains reports whether id is in the set.
func (s RoomIDSet) Contains(id RoomID) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

// Insert returns the set with id added.
func (s RoomIDSet) Insert(id RoomID) RoomIDSet {
	i, ok := slices.BinarySearch(s, id)
	if ok {
		return s
	}
	return slices.Insert(s, i, id)
}

// Remove returns the set with id removed.
func (s RoomIDSet) Remove(id RoomID) RoomIDSet {
	i, ok := slices.BinarySearch(s, id)
	if !ok {
		return s
	}
	if len(s) == 1 {
		return nil
	}
	return slices.Delete(s, i, i+1)
}

// First returns the smallest id, or InvalidRoomID for an empty set.
func (s RoomIDSet) First() RoomID {
	if len(s) == 0 {
		return InvalidRoomID
	}
	return s[0]
}

// Exit is one of the six passages of a room.
type Exit struct {
	DoorName  string
	ExitFlags ExitFlags
	DoorFlags DoorFlags
	incoming  RoomIDSet
	outgoing  RoomIDSet
}

// Outgoing returns the rooms this exit leads to.
func (e *Exit) Outgoing() RoomIDSet { return e.outgoing }

// Incoming returns the rooms whose exit in the opposite direction leads here.
func (e *Exit) Incoming() RoomIDSet { return e.incoming }

// AddOut links the exit to id and marks it as an exit.
//
// Postcondition: e.ExitFlags contains ExitExit.
func (e *Exit) AddOut(id RoomID) {
	e.outgoing = e.outgoing.Insert(id)
	e.ExitFlags = e.ExitFlags.With(ExitExit)
}

// RemoveOut unlinks the exit from id. The exit flags are left untouched.
func (e *Exit) RemoveOut(id RoomID) { e.outgoing = e.outgoing.Remove(id) }

// AddIn records that id has an exit leading here.
func (e *Exit) AddIn(id RoomID) { e.incoming = e.incoming.Insert(id) }

// RemoveIn forgets the incoming link from id.
func (e *Exit) RemoveIn(id RoomID) { e.incoming = e.incoming.Remove(id) }

// ContainsOut reports whether the exit leads to id.
func (e *Exit) ContainsOut(id RoomID) bool { return e.outgoing.Contains(id) }

// ContainsIn reports whether id leads here through this exit's opposite.
func (e *Exit) ContainsIn(id RoomID) bool { return e.incoming.Contains(id) }

func (e *Exit) IsExit() bool { return e.ExitFlags.Contains(ExitExit) }
func (e *Exit) IsDoor() bool { return e.ExitFlags.Contains(ExitDoor) }
func (e *Exit) IsRoad() bool { return e.ExitFlags.Contains(ExitRoad) }
func (e *Exit) IsClimb() bool { return e.ExitFlags.Contains(ExitClimb) }
func (e *Exit) IsRandom() bool { return e.ExitFlags.Contains(ExitRandom) }
func (e *Exit) IsNoMatch() bool { return e.ExitFlags.Contains(ExitNoMatch) }

// IsHiddenDoor reports whether the exit is a secret door.
func (e *Exit) IsHiddenDoor() bool {
	return e.IsDoor() && e.DoorFlags.Contains(DoorHidden)
}

// Equal reports structural equality, including links.
func (e *Exit) Equal(o *Exit) bool {
	return e.DoorName == o.DoorName &&
		e.ExitFlags == o.ExitFlags &&
		e.DoorFlags == o.DoorFlags &&
		slices.Equal(e.incoming, o.incoming) &&
		slices.Equal(e.outgoing, o.outgoing)
}

func (e Exit) clone() Exit {
	e.incoming = slices.Clone(e.incoming)
	e.outgoing = slices.Clone(e.outgoing)
	return e
}

// Room is a single location of the map.
type Room struct {
	ID          RoomID
	ServerID    ServerRoomID
	Name        string
	StaticDesc  string
	DynamicDesc string
	Note        string
	Terrain     TerrainType
	Light       LightType
	Sundeath    SundeathType
	Portable    PortableType
	Ridable     RidableType
	Align       AlignType
	MobFlags    MobFlags
	LoadFlags   LoadFlags
	Position    Coordinate
	// Temporary rooms are speculative and disappear unless a path through them is approved.
	Temporary bool
	// UpToDate is set once the room has been refreshed from a complete observation.
	UpToDate bool
	Exits    [NumExits]Exit
}

// NewRoom returns an empty permanent room at pos.
func NewRoom(pos Coordinate) *Room {
	return &Room{ID: InvalidRoomID, Position: pos}
}

// Exit returns the exit in direction d.
//
// Precondition: d.IsNESWUD().
func (r *Room) Exit(d ExitDirection) *Exit {
	return &r.Exits[d]
}

// Clone returns a deep copy of r.
func (r *Room) Clone() *Room {
	c := *r
	for i := range c.Exits {
		c.Exits[i] = r.Exits[i].clone()
	}
	return &c
}

// IsFake reports whether r is a placeholder that is not part of any map.
func (r *Room) IsFake() bool {
	return r == nil || r.ID == InvalidRoomID
}

func (r *Room) String() string {
	return fmt.Sprintf("room %d %q at %s", r.ID, r.Name, r.Position)
}
