package mapdata

import (
	"fmt"
	"slices"
	"strings"
)

// Action is a unit of map mutation. Apply runs under the map's write lock and
// must perform every change through tx.
type Action interface {
	Apply(tx *Tx) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(tx *Tx) error

// Apply calls f(tx).
func (f ActionFunc) Apply(tx *Tx) error { return f(tx) }

// Group applies its actions in order as one atomic step.
type Group []Action

// Apply runs every member; the first error aborts the whole group.
func (g Group) Apply(tx *Tx) error {
	for _, a := range g {
		if err := a.Apply(tx); err != nil {
			return err
		}
	}
	return nil
}

// AddExit links From to To through Dir. TwoWay also links To back to From
// through the opposite direction.
type AddExit struct {
	From   RoomID
	To     RoomID
	Dir    ExitDirection
	TwoWay bool
}

// Apply links the rooms.
func (a AddExit) Apply(tx *Tx) error {
	if err := tx.Link(a.From, a.Dir, a.To); err != nil {
		return err
	}
	if a.TwoWay {
		return tx.Link(a.To, a.Dir.Opposite(), a.From)
	}
	return nil
}

// RemoveExit unlinks From from To through Dir.
type RemoveExit struct {
	From RoomID
	To   RoomID
	Dir  ExitDirection
}

// Apply unlinks the rooms.
func (a RemoveExit) Apply(tx *Tx) error { return tx.Unlink(a.From, a.Dir, a.To) }

// RemoveRoom deletes a room and every link that touches it.
type RemoveRoom struct {
	ID RoomID
}

// Apply removes the room.
func (a RemoveRoom) Apply(tx *Tx) error { return tx.Remove(a.ID) }

// MakePermanent clears the temporary mark of a room.
type MakePermanent struct {
	ID RoomID
}

// Apply marks the room permanent.
func (a MakePermanent) Apply(tx *Tx) error {
	return tx.Update(a.ID, func(r *Room) { r.Temporary = false })
}

// SetSundeath records whether sunlight reaches a room.
type SetSundeath struct {
	ID       RoomID
	Sundeath SundeathType
}

// Apply updates the room.
func (a SetSundeath) Apply(tx *Tx) error {
	return tx.Update(a.ID, func(r *Room) { r.Sundeath = a.Sundeath })
}

func describe(a Action) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", a), "mapdata.")
}

// Tx is the mutation handle passed to Action.Apply. It records the original
// state of every room it touches so that a failing action can be undone.
type Tx struct {
	m         *MapData
	originals map[RoomID]*Room
	order     []RoomID
	startLen  int
}

func newTx(m *MapData) *Tx {
	return &Tx{m: m, originals: make(map[RoomID]*Room), startLen: len(m.rooms)}
}

// Peek returns the live room with the given id. The room must not be modified
// directly; use Update.
func (tx *Tx) Peek(id RoomID) (*Room, bool) {
	r := tx.m.lookup(id)
	return r, r != nil
}

// RoomAt returns the live room at pos.
func (tx *Tx) RoomAt(pos Coordinate) (*Room, bool) {
	id, ok := tx.m.spatial[pos]
	if !ok {
		return nil, false
	}
	return tx.Peek(id)
}

// Create adds r to the map at the free coordinate nearest to r.Position and
// assigns it a fresh id. Links already present on r are dropped; use Link.
//
// Postcondition: r.ID and r.Position reflect the stored room.
func (tx *Tx) Create(r *Room) RoomID {
	m := tx.m
	for i := range r.Exits {
		r.Exits[i].incoming = nil
		r.Exits[i].outgoing = nil
	}
	r.ID = RoomID(len(m.rooms))
	r.Position = m.nearestFree(r.Position)
	m.rooms = append(m.rooms, r)
	m.count++
	m.index(r)
	tx.originals[r.ID] = nil
	tx.order = append(tx.order, r.ID)
	return r.ID
}

// Update applies fn to the room with the given id and reindexes it.
// Changing the position moves the room to the nearest free coordinate.
func (tx *Tx) Update(id RoomID, fn func(*Room)) error {
	r, err := tx.touch(id)
	if err != nil {
		return err
	}
	m := tx.m
	m.unindex(r)
	fn(r)
	r.ID = id
	if other, taken := m.spatial[r.Position]; taken && other != id {
		r.Position = m.nearestFree(r.Position)
	}
	m.index(r)
	return nil
}

// Link adds an exit from one room to another.
func (tx *Tx) Link(from RoomID, dir ExitDirection, to RoomID) error {
	if !dir.IsNESWUD() {
		return fmt.Errorf("linking %d to %d: invalid direction %s", from, to, dir)
	}
	src, err := tx.touch(from)
	if err != nil {
		return err
	}
	dst, err := tx.touch(to)
	if err != nil {
		return err
	}
	src.Exit(dir).AddOut(to)
	dst.Exit(dir.Opposite()).AddIn(from)
	return nil
}

// Unlink removes an exit from one room to another.
func (tx *Tx) Unlink(from RoomID, dir ExitDirection, to RoomID) error {
	if !dir.IsNESWUD() {
		return fmt.Errorf("unlinking %d from %d: invalid direction %s", from, to, dir)
	}
	src, err := tx.touch(from)
	if err != nil {
		return err
	}
	dst, err := tx.touch(to)
	if err != nil {
		return err
	}
	src.Exit(dir).RemoveOut(to)
	dst.Exit(dir.Opposite()).RemoveIn(from)
	return nil
}

// Remove deletes a room and every link to or from it.
func (tx *Tx) Remove(id RoomID) error {
	r, err := tx.touch(id)
	if err != nil {
		return err
	}
	for _, d := range AllExits {
		e := r.Exit(d)
		for _, t := range slices.Clone(e.Outgoing()) {
			if other, err := tx.touch(t); err == nil {
				other.Exit(d.Opposite()).RemoveIn(id)
			}
		}
		for _, s := range slices.Clone(e.Incoming()) {
			if other, err := tx.touch(s); err == nil {
				other.Exit(d.Opposite()).RemoveOut(id)
			}
		}
	}
	m := tx.m
	m.unindex(r)
	m.rooms[id] = nil
	m.count--
	return nil
}

func (tx *Tx) touch(id RoomID) (*Room, error) {
	r := tx.m.lookup(id)
	if r == nil {
		return nil, fmt.Errorf("room %d: %w", id, ErrRoomNotFound)
	}
	if _, seen := tx.originals[id]; !seen {
		tx.originals[id] = r.Clone()
		tx.order = append(tx.order, id)
	}
	return r, nil
}

func (tx *Tx) rollback() {
	m := tx.m
	for _, id := range tx.order {
		if cur := m.lookup(id); cur != nil {
			m.unindex(cur)
			m.count--
		}
	}
	for _, id := range tx.order {
		orig := tx.originals[id]
		if int(id) < len(m.rooms) {
			m.rooms[id] = orig
		}
		if orig != nil {
			m.index(orig)
			m.count++
		}
	}
	m.rooms = m.rooms[:tx.startLen]
}

func (tx *Tx) changeSet() ChangeSet {
	var cs ChangeSet
	for _, id := range tx.order {
		present := tx.m.lookup(id) != nil
		switch orig := tx.originals[id]; {
		case orig == nil && present:
			cs.Added = cs.Added.Insert(id)
		case orig != nil && present:
			cs.Updated = cs.Updated.Insert(id)
		case orig != nil && !present:
			cs.Removed = cs.Removed.Insert(id)
		}
	}
	return cs
}
