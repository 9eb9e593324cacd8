package mapdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/MUME/MMapper-sub000/internal/softassert"
)

var (
	// ErrMapBlocked is returned by Execute while a bulk operation holds the map.
	ErrMapBlocked = errors.New("map is blocked by a bulk operation")
	// ErrRoomNotFound is returned when an action names a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMapNotFound is returned by storage backends that hold no map under the requested name.
	ErrMapNotFound = errors.New("map not found")
)

// blockWeight is the semaphore weight a bulk operation takes; ordinary
// mutations take one unit, so a block waits for in-flight mutations to finish.
const blockWeight = 1 << 20

// ChangeSet lists the rooms touched by one Execute call.
type ChangeSet struct {
	Added   RoomIDSet
	Updated RoomIDSet
	Removed RoomIDSet
}

// IsEmpty reports whether nothing changed.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// ChangeListener receives exactly one ChangeSet per successful, non-empty Execute.
type ChangeListener func(ChangeSet)

// Query selects rooms by their observable fields. Empty strings and
// TerrainUndefined match anything.
type Query struct {
	Name    string
	Desc    string
	Terrain TerrainType
}

func (q Query) matches(r *Room) bool {
	if q.Name != "" && q.Name != r.Name {
		return false
	}
	if q.Desc != "" && q.Desc != r.StaticDesc {
		return false
	}
	if q.Terrain != TerrainUndefined && r.Terrain != TerrainUndefined && q.Terrain != r.Terrain {
		return false
	}
	return true
}

// MapData is the in-memory room map.
//
// Reads may happen from any goroutine. All mutations go through Execute and
// are serialised under the write lock.
type MapData struct {
	logger  *zap.Logger
	checker *softassert.Checker
	bulk    *semaphore.Weighted

	mu        sync.RWMutex
	rooms     []*Room
	spatial   map[Coordinate]RoomID
	names     map[string]RoomIDSet
	count     int
	listeners []ChangeListener
}

// New creates an empty map.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *MapData {
	logger = logger.Named("mapdata")
	return &MapData{
		logger:  logger,
		checker: softassert.New(logger),
		bulk:    semaphore.NewWeighted(blockWeight),
		spatial: make(map[Coordinate]RoomID),
		names:   make(map[string]RoomIDSet),
	}
}

// Subscribe registers l for change notifications.
//
// Listeners run synchronously on the goroutine that called Execute or Load,
// after the map lock is released. The caller may still hold its own locks
// (the path machine holds its mutex while it executes actions), so l may read
// the map but must not call back into whoever triggered the change. A
// listener that needs to do so should hand the ChangeSet to another goroutine.
func (m *MapData) Subscribe(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Room returns a copy of the room with the given id.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (m *MapData) Room(id RoomID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.lookup(id)
	if r == nil {
		return nil, false
	}
	return r.Clone(), true
}

// RoomAt returns a copy of the room occupying pos.
func (m *MapData) RoomAt(pos Coordinate) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.spatial[pos]
	if !ok {
		return nil, false
	}
	return m.lookup(id).Clone(), true
}

// MatchingRooms returns copies of every room selected by q, ordered by id.
func (m *MapData) MatchingRooms(q Query) []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Room
	if q.Name != "" {
		for _, id := range m.names[q.Name] {
			if r := m.lookup(id); r != nil && q.matches(r) {
				out = append(out, r.Clone())
			}
		}
		return out
	}
	for _, r := range m.rooms {
		if r != nil && q.matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Rooms returns copies of all rooms ordered by id.
func (m *MapData) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, m.count)
	for _, r := range m.rooms {
		if r != nil {
			out = append(out, r.Clone())
		}
	}
	return out
}

// RoomCount returns the number of rooms, temporary ones included.
func (m *MapData) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// IsEmpty reports whether the map has no rooms.
func (m *MapData) IsEmpty() bool { return m.RoomCount() == 0 }

// Bounds returns the corners of the box enclosing every room.
//
// Postcondition: ok is false for an empty map.
func (m *MapData) Bounds() (lo, hi Coordinate, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if r == nil {
			continue
		}
		p := r.Position
		if !ok {
			lo, hi, ok = p, p, true
			continue
		}
		lo = Coordinate{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = Coordinate{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi, ok
}

// Execute applies action atomically: either every mutation it performs is
// kept, or none is. Listeners are notified once after the lock is released.
//
// Postcondition: Returns ErrMapBlocked without side effects while a bulk block is held.
func (m *MapData) Execute(action Action) error {
	if !m.bulk.TryAcquire(1) {
		return ErrMapBlocked
	}
	defer m.bulk.Release(1)

	m.mu.Lock()
	tx := newTx(m)
	if err := action.Apply(tx); err != nil {
		tx.rollback()
		m.mu.Unlock()
		return fmt.Errorf("executing %s: %w", describe(action), err)
	}
	changes := tx.changeSet()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.Unlock()

	if changes.IsEmpty() {
		return nil
	}
	for _, l := range listeners {
		l(changes)
	}
	return nil
}

// Block waits for in-flight mutations and then rejects new ones until the
// returned release function is called.
//
// Postcondition: On success, release must be called exactly once.
func (m *MapData) Block(ctx context.Context) (release func(), err error) {
	if err := m.bulk.Acquire(ctx, blockWeight); err != nil {
		return nil, fmt.Errorf("blocking map: %w", err)
	}
	var once sync.Once
	return func() { once.Do(func() { m.bulk.Release(blockWeight) }) }, nil
}

// Blocked reports whether a bulk operation currently holds the map.
func (m *MapData) Blocked() bool {
	if m.bulk.TryAcquire(1) {
		m.bulk.Release(1)
		return false
	}
	return true
}

func (m *MapData) lookup(id RoomID) *Room {
	if int64(id) >= int64(len(m.rooms)) {
		return nil
	}
	return m.rooms[id]
}

func (m *MapData) index(r *Room) {
	m.spatial[r.Position] = r.ID
	if r.Name != "" {
		m.names[r.Name] = m.names[r.Name].Insert(r.ID)
	}
}

func (m *MapData) unindex(r *Room) {
	if m.spatial[r.Position] == r.ID {
		delete(m.spatial, r.Position)
	}
	if r.Name != "" {
		if rest := m.names[r.Name].Remove(r.ID); len(rest) > 0 {
			m.names[r.Name] = rest
		} else {
			delete(m.names, r.Name)
		}
	}
}

// nearestFree returns pos if it is unoccupied, otherwise the closest free
// coordinate on the same layer, scanning rings of growing Manhattan distance.
func (m *MapData) nearestFree(pos Coordinate) Coordinate {
	if _, taken := m.spatial[pos]; !taken {
		return pos
	}
	for dist := int32(1); ; dist++ {
		ring := make([]Coordinate, 0, 4*dist)
		for dx := -dist; dx <= dist; dx++ {
			dy := dist - abs32(dx)
			ring = append(ring, Coordinate{X: pos.X + dx, Y: pos.Y - dy, Z: pos.Z})
			if dy != 0 {
				ring = append(ring, Coordinate{X: pos.X + dx, Y: pos.Y + dy, Z: pos.Z})
			}
		}
		sort.Slice(ring, func(i, j int) bool {
			if ring[i].Y != ring[j].Y {
				return ring[i].Y < ring[j].Y
			}
			return ring[i].X < ring[j].X
		})
		for _, c := range ring {
			if _, taken := m.spatial[c]; !taken {
				return c
			}
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
