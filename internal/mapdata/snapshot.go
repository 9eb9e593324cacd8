package mapdata

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Snapshot is the persisted form of a map. Room links are carried by the
// outgoing sets only; incoming sets are rebuilt on load.
type Snapshot struct {
	Rooms []*Room
}

// Export returns a deep copy of every permanent room.
func (m *MapData) Export() Snapshot {
	all := m.Rooms()
	rooms := all[:0]
	for _, r := range all {
		if !r.Temporary {
			rooms = append(rooms, r)
		}
	}
	for _, r := range rooms {
		for _, d := range AllExits {
			e := r.Exit(d)
			for _, t := range slices.Clone(e.Outgoing()) {
				if m.peekTemporary(t) {
					e.RemoveOut(t)
				}
			}
			e.incoming = nil
		}
	}
	return Snapshot{Rooms: rooms}
}

func (m *MapData) peekTemporary(id RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.lookup(id)
	return r == nil || r.Temporary
}

// roomIDSlack bounds how sparse a loaded id space may be: a snapshot of n
// rooms may use ids below 4*n+roomIDSlack. The arena is indexed by id.
const roomIDSlack = 1 << 16

// ErrRoomIDOutOfRange is returned by Load for a room id the arena will not grow to hold.
var ErrRoomIDOutOfRange = errors.New("room id out of range")

// Load replaces the whole map with snap while holding the bulk block.
// Room ids are kept. Enum fields out of range are clamped and dangling links
// are dropped, each reported once.
//
// Precondition: Every room id is valid, unique and below 4*len(snap.Rooms)+65536.
// Postcondition: On error the map and its listeners are untouched. On success,
// listeners receive one ChangeSet listing every loaded room as added.
func (m *MapData) Load(ctx context.Context, snap Snapshot) error {
	if err := validateIDs(snap); err != nil {
		return fmt.Errorf("loading map: %w", err)
	}

	release, err := m.Block(ctx)
	if err != nil {
		return err
	}
	defer release()

	staged, added := m.stage(snap)

	m.mu.Lock()
	var removed RoomIDSet
	for _, r := range m.rooms {
		if r != nil {
			removed = append(removed, r.ID)
		}
	}
	m.rooms = staged.rooms
	m.spatial = staged.spatial
	m.names = staged.names
	m.count = staged.count
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info("map loaded", zap.Int("rooms", len(added)))
	cs := ChangeSet{Added: added, Removed: removed}
	if !cs.IsEmpty() {
		for _, l := range listeners {
			l(cs)
		}
	}
	return nil
}

func validateIDs(snap Snapshot) error {
	limit := int64(4*len(snap.Rooms)) + roomIDSlack
	seen := make(map[RoomID]struct{}, len(snap.Rooms))
	for _, r := range snap.Rooms {
		if r.ID == InvalidRoomID {
			return fmt.Errorf("room %q has no id", r.Name)
		}
		if int64(r.ID) >= limit {
			return fmt.Errorf("room %d of %d: %w", r.ID, len(snap.Rooms), ErrRoomIDOutOfRange)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate room id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// stage builds the arena and indexes for snap without touching m.
//
// Precondition: snap passed validateIDs.
func (m *MapData) stage(snap Snapshot) (*MapData, RoomIDSet) {
	size := 0
	for _, r := range snap.Rooms {
		size = max(size, int(r.ID)+1)
	}
	staged := &MapData{
		logger:  m.logger,
		checker: m.checker,
		rooms:   make([]*Room, size),
		spatial: make(map[Coordinate]RoomID, len(snap.Rooms)),
		names:   make(map[string]RoomIDSet),
	}
	for _, src := range snap.Rooms {
		r := src.Clone()
		m.sanitize(r)
		for i := range r.Exits {
			r.Exits[i].incoming = nil
		}
		if _, taken := staged.spatial[r.Position]; taken {
			m.checker.Fail("overlapping rooms", zap.Uint32("room", uint32(r.ID)), zap.Stringer("pos", r.Position))
			r.Position = staged.nearestFree(r.Position)
		}
		staged.rooms[r.ID] = r
		staged.count++
		staged.index(r)
	}

	var added RoomIDSet
	for _, r := range staged.rooms {
		if r == nil {
			continue
		}
		added = append(added, r.ID)
		for _, d := range AllExits {
			e := r.Exit(d)
			for _, t := range slices.Clone(e.Outgoing()) {
				target := staged.lookup(t)
				if target == nil {
					m.checker.Fail("dangling exit", zap.Uint32("room", uint32(r.ID)), zap.Stringer("dir", d))
					e.RemoveOut(t)
					continue
				}
				target.Exit(d.Opposite()).AddIn(r.ID)
			}
		}
	}
	return staged, added
}

func (m *MapData) sanitize(r *Room) {
	c := m.checker
	r.Terrain = TerrainType(c.Enum("terrain", uint8(r.Terrain), NumTerrainTypes, 0))
	r.Light = LightType(c.Enum("light", uint8(r.Light), int(numLightTypes), 0))
	r.Sundeath = SundeathType(c.Enum("sundeath", uint8(r.Sundeath), int(numSundeathTypes), 0))
	r.Portable = PortableType(c.Enum("portable", uint8(r.Portable), int(numPortableTypes), 0))
	r.Ridable = RidableType(c.Enum("ridable", uint8(r.Ridable), int(numRidableTypes), 0))
	r.Align = AlignType(c.Enum("align", uint8(r.Align), int(numAlignTypes), 0))
	for i := range r.Exits {
		e := &r.Exits[i]
		if len(e.outgoing) > 0 && !e.IsExit() {
			e.ExitFlags = e.ExitFlags.With(ExitExit)
		}
	}
	if ce := m.logger.Check(zapcore.DebugLevel, "room loaded"); ce != nil {
		ce.Write(zap.Stringer("room", r))
	}
}
