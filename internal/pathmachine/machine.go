package pathmachine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

// Map is the room store the machine reads and mutates.
type Map interface {
	Room(id mapdata.RoomID) (*mapdata.Room, bool)
	RoomAt(pos mapdata.Coordinate) (*mapdata.Room, bool)
	MatchingRooms(q mapdata.Query) []*mapdata.Room
	Execute(a mapdata.Action) error
}

// Listener is told about every confirmed or most likely position.
type Listener interface {
	PlayerMoved(room *mapdata.Room)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(room *mapdata.Room)

// PlayerMoved calls f(room).
func (f ListenerFunc) PlayerMoved(room *mapdata.Room) { f(room) }

// recipient receives the rooms found by a lookup.
type recipient interface {
	receive(room *mapdata.Room)
}

// Machine decides which room each observation was made in.
//
// All methods are safe for concurrent use; listeners are called after the
// machine's lock is released.
type Machine struct {
	mu         sync.Mutex
	logger     *zap.Logger
	m          Map
	params     Params
	mode       Mode
	state      State
	mostLikely *mapdata.Room
	lastEvent  *parseevent.ParseEvent
	paths      []*Path
	sig        *signaler
	round      int
	listeners  []Listener
	moved      *mapdata.Room
}

// New creates a machine that has not located the player yet.
//
// Precondition: m and logger must be non-nil.
// Postcondition: State() is StateSyncing.
func New(m Map, params Params, mode Mode, logger *zap.Logger) *Machine {
	logger = logger.Named("pathmachine")
	pm := &Machine{
		logger:     logger,
		m:          m,
		params:     params,
		mode:       mode,
		state:      StateSyncing,
		mostLikely: mapdata.NewRoom(mapdata.Coordinate{}),
		lastEvent:  parseevent.Dummy(parseevent.CmdNone),
	}
	pm.sig = newSignaler(logger, m, pm.exec)
	return pm
}

// AddListener registers l for position updates.
func (pm *Machine) AddListener(l Listener) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.listeners = append(pm.listeners, l)
}

// SetMode switches between play, map and offline behaviour.
func (pm *Machine) SetMode(mode Mode) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if mode != pm.mode {
		pm.logger.Info("mode changed", zap.Stringer("from", pm.mode), zap.Stringer("to", mode))
	}
	pm.mode = mode
}

// Mode returns the current mode.
func (pm *Machine) Mode() Mode {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.mode
}

// State returns the current confidence state.
func (pm *Machine) State() State {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.state
}

// CurrentRoom returns the confirmed or most likely room.
//
// Postcondition: Returns (nil, false) until the player has been located once.
func (pm *Machine) CurrentRoom() (*mapdata.Room, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.mostLikely.IsFake() {
		return nil, false
	}
	return pm.mostLikely.Clone(), true
}

// Candidates lists the rooms the player may be in, most likely first.
func (pm *Machine) Candidates() []mapdata.RoomID {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	switch pm.state {
	case StateApproved:
		return []mapdata.RoomID{pm.mostLikely.ID}
	case StateExperimenting:
		ids := make([]mapdata.RoomID, 0, len(pm.paths))
		for _, p := range pm.paths {
			ids = append(ids, p.room.ID)
		}
		return ids
	}
	return nil
}

// Event processes one observation.
func (pm *Machine) Event(ev *parseevent.ParseEvent) {
	pm.mu.Lock()
	start := time.Now()
	pm.sig.retryDeferred()
	pm.lastEvent = ev
	pm.logger.Debug("received event", zap.Stringer("state", pm.state), zap.Stringer("event", ev))

	switch pm.state {
	case StateApproved:
		pm.approved(ev)
	case StateExperimenting:
		pm.experimenting(ev)
	case StateSyncing:
		pm.syncing(ev)
	}

	pm.logger.Debug("done processing event",
		zap.Stringer("state", pm.state),
		zap.Int("paths", len(pm.paths)),
		zap.Duration("elapsed", time.Since(start)))
	pm.flush()
}

// SetCurrentRoom forces the position to id. With update set, the room is
// refreshed from the last observation.
func (pm *Machine) SetCurrentRoom(id mapdata.RoomID, update bool) error {
	pm.mu.Lock()
	pm.sig.retryDeferred()
	room, ok := pm.m.Room(id)
	if !ok {
		pm.mu.Unlock()
		return fmt.Errorf("setting current room %d: %w", id, mapdata.ErrRoomNotFound)
	}
	if update {
		pm.exec(updateAction(id, pm.lastEvent), true)
		room = pm.refresh(room)
	}
	pm.releaseAllPaths()
	pm.mostLikely = room
	pm.state = StateApproved
	pm.moved = room
	pm.logger.Info("current room set", zap.Uint32("room", uint32(id)))
	pm.flush()
	return nil
}

// ReleaseAllPaths drops every candidate and starts over.
func (pm *Machine) ReleaseAllPaths() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.releaseAllPaths()
	pm.sig.retryDeferred()
}

func (pm *Machine) releaseAllPaths() {
	for _, p := range pm.paths {
		p.deny()
	}
	pm.paths = nil
	pm.sig.reset()
	pm.state = StateSyncing
}

// flush unlocks the machine and delivers a pending position update.
func (pm *Machine) flush() {
	moved := pm.moved
	pm.moved = nil
	listeners := slices.Clone(pm.listeners)
	pm.mu.Unlock()
	if moved == nil {
		return
	}
	for _, l := range listeners {
		l.PlayerMoved(moved.Clone())
	}
}

// exec runs an action against the map. Mutations other than the cleanup of
// temporary rooms happen in map mode only.
//
// Postcondition: A suppressed mutation returns nil. A cleanup refused by a
// bulk block returns ErrMapBlocked so the signaler can retry it later.
func (pm *Machine) exec(a mapdata.Action, mutates bool) error {
	if mutates && pm.mode != ModeMap {
		pm.logger.Debug("map change suppressed", zap.Stringer("mode", pm.mode), zap.String("action", fmt.Sprintf("%T", a)))
		return nil
	}
	err := pm.m.Execute(a)
	switch {
	case err == nil:
	case !mutates && errors.Is(err, mapdata.ErrMapBlocked):
		pm.logger.Debug("cleanup deferred", zap.String("action", fmt.Sprintf("%T", a)))
	default:
		pm.logger.Warn("map action failed", zap.Error(err))
	}
	return err
}

func (pm *Machine) refresh(room *mapdata.Room) *mapdata.Room {
	if r, ok := pm.m.Room(room.ID); ok {
		return r
	}
	return room
}

func updateAction(id mapdata.RoomID, ev *parseevent.ParseEvent) mapdata.Action {
	return mapdata.ActionFunc(func(tx *mapdata.Tx) error {
		return tx.Update(id, func(r *mapdata.Room) { UpdateRoom(r, ev) })
	})
}

func (pm *Machine) lookID(rcp recipient, id mapdata.RoomID) {
	if r, ok := pm.m.Room(id); ok {
		rcp.receive(r)
	}
}

func (pm *Machine) lookAt(rcp recipient, pos mapdata.Coordinate) {
	if r, ok := pm.m.RoomAt(pos); ok {
		rcp.receive(r)
	}
}

func (pm *Machine) lookEvent(rcp recipient, ev *parseevent.ParseEvent) {
	for _, r := range pm.m.MatchingRooms(ev.Query()) {
		rcp.receive(r)
	}
}

// tryExits offers the rooms behind the exit taken, or behind every exit for
// moves of unknown direction. out selects outgoing or incoming links.
func (pm *Machine) tryExits(room *mapdata.Room, rcp recipient, ev *parseevent.ParseEvent, out bool) {
	move := ev.Move()
	links := func(e *mapdata.Exit) mapdata.RoomIDSet {
		if out {
			return e.Outgoing()
		}
		return e.Incoming()
	}
	switch {
	case move.IsDirection():
		for _, id := range links(room.Exit(move.Direction())) {
			pm.lookID(rcp, id)
		}
	case move == parseevent.CmdUnknown:
	default:
		pm.lookID(rcp, room.ID)
		if move >= parseevent.CmdFlee {
			for _, d := range mapdata.AllExits {
				for _, id := range links(room.Exit(d)) {
					pm.lookID(rcp, id)
				}
			}
		}
	}
}

// tryCoordinate offers the room at the coordinate the move leads to, or at
// every neighbouring coordinate for moves of unknown direction.
func (pm *Machine) tryCoordinate(room *mapdata.Room, rcp recipient, ev *parseevent.ParseEvent) {
	move := ev.Move()
	if move < parseevent.CmdFlee {
		pm.lookAt(rcp, room.Position.Add(move.Direction().Offset()))
		return
	}
	pm.lookAt(rcp, room.Position)
	for _, d := range mapdata.AllExits {
		pm.lookAt(rcp, room.Position.Add(d.Offset()))
	}
}

// approvedMatcher accepts a single room that does not contradict the event.
type approvedMatcher struct {
	event       *parseevent.ParseEvent
	tolerance   int
	matched     *mapdata.Room
	moreThanOne bool
	update      bool
}

func (a *approvedMatcher) receive(room *mapdata.Room) {
	if a.matched != nil {
		a.moreThanOne = true
		return
	}
	switch Compare(room, a.event, a.tolerance) {
	case Different:
	case Tolerance:
		a.matched = room
		a.update = a.event.NumSkipped() == 0
	default:
		a.matched = room
	}
}

func (a *approvedMatcher) oneMatch() *mapdata.Room {
	if a.moreThanOne {
		return nil
	}
	return a.matched
}

func (a *approvedMatcher) reset() {
	a.matched, a.moreThanOne, a.update = nil, false, false
}

func (pm *Machine) approved(ev *parseevent.ParseEvent) {
	appr := &approvedMatcher{event: ev, tolerance: pm.params.MatchingTolerance}
	from := pm.mostLikely

	if ev.Move() == parseevent.CmdLook {
		pm.lookID(appr, from.ID)
	} else {
		pm.tryExits(from, appr, ev, true)
	}
	perhaps := appr.oneMatch()

	if perhaps == nil {
		appr.reset()
		pm.tryExits(from, appr, ev, false)
		perhaps = appr.oneMatch()
	}
	if perhaps == nil {
		appr.reset()
		pm.tryCoordinate(from, appr, ev)
		perhaps = appr.oneMatch()
	}
	if offset := ev.Move().Direction().Offset(); perhaps == nil && offset.Z == 0 {
		below := from.Position.Add(offset).Add(mapdata.Coordinate{Z: -1})
		appr.reset()
		pm.lookAt(appr, below)
		perhaps = appr.oneMatch()
		if perhaps == nil {
			appr.reset()
			pm.lookAt(appr, below.Add(mapdata.Coordinate{Z: 2}))
			perhaps = appr.oneMatch()
		}
	}

	if perhaps == nil {
		pm.logger.Debug("no unique match, experimenting", zap.Uint32("from", uint32(from.ID)))
		pm.state = StateExperimenting
		pm.paths = []*Path{newRoot(from, pm.sig)}
		pm.experimenting(ev)
		return
	}

	if move := ev.Move(); move.IsDirection() {
		pm.exec(mapdata.AddExit{From: from.ID, To: perhaps.ID, Dir: move.Direction()}, true)
	}
	pm.updateSundeath(perhaps, ev.ConnectedRoomFlags())
	if appr.update {
		pm.exec(updateAction(perhaps.ID, ev), true)
	}
	pm.mostLikely = pm.refresh(perhaps)
	pm.moved = pm.mostLikely
}

// updateSundeath records the sunlight seen through each exit on the unique
// room behind it.
func (pm *Machine) updateSundeath(room *mapdata.Room, connected parseevent.ConnectedRoomFlags) {
	if !connected.IsValid() {
		return
	}
	for _, d := range mapdata.AllExits {
		out := room.Exit(d).Outgoing()
		if len(out) != 1 {
			continue
		}
		var sundeath mapdata.SundeathType
		switch {
		case connected.HasDirectSunlight(d):
			sundeath = mapdata.SundeathSundeath
		case connected.Light(d)&parseevent.LightIndirectSun != 0:
			sundeath = mapdata.SundeathNoSundeath
		default:
			continue
		}
		if neighbour, ok := pm.m.Room(out.First()); ok && neighbour.Sundeath != sundeath {
			pm.exec(mapdata.SetSundeath{ID: neighbour.ID, Sundeath: sundeath}, true)
		}
	}
}

func (pm *Machine) experimenting(ev *parseevent.ParseEvent) {
	pm.round++
	move := ev.Move()
	dir := move.Direction()
	offset := dir.Offset()

	if pm.mode == ModeMap && ev.NumSkipped() == 0 && move.IsDirection() &&
		!pm.mostLikely.IsFake() && !offset.IsNull() {
		x := newExperiment(pm.paths, dir, pm.params, pm.round)
		ends := make(map[mapdata.RoomID]struct{}, len(pm.paths))
		for _, p := range pm.paths {
			if _, seen := ends[p.room.ID]; seen {
				continue
			}
			ends[p.room.ID] = struct{}{}
			pm.createRoom(ev, p.room.Position.Add(offset))
		}
		for _, r := range pm.m.MatchingRooms(ev.Query()) {
			if Compare(r, ev, pm.params.MatchingTolerance) == Equal {
				x.crossover(r)
			} else {
				pm.sig.touch(r.ID)
			}
		}
		pm.paths = x.evaluate()
	} else {
		o := newOneByOne(ev, pm.params, pm.round, pm.sig)
		for _, p := range pm.paths {
			o.addPath(p)
			pm.tryExits(p.room, o, ev, true)
			pm.tryExits(p.room, o, ev, false)
			pm.tryCoordinate(p.room, o, ev)
		}
		pm.paths = o.evaluate()
	}
	pm.evaluatePaths()
}

// createRoom adds a temporary room built from ev near pos.
func (pm *Machine) createRoom(ev *parseevent.ParseEvent, pos mapdata.Coordinate) {
	room := mapdata.NewRoom(pos)
	UpdateRoom(room, ev)
	room.Temporary = true
	pm.exec(mapdata.ActionFunc(func(tx *mapdata.Tx) error {
		id := tx.Create(room)
		pm.logger.Debug("created temporary room", zap.Uint32("room", uint32(id)), zap.Stringer("pos", pos))
		return nil
	}), true)
}

func (pm *Machine) syncing(ev *parseevent.ParseEvent) {
	pm.round++
	s := newSyncing(pm.logger, pm.paths, ev, pm.params, pm.round, pm.sig)
	if ev.NumSkipped() <= pm.params.MaxSkipped {
		pm.lookEvent(s, ev)
	}
	pm.paths = s.evaluate()
	pm.evaluatePaths()
}

// evaluatePaths approves a lone surviving path or keeps experimenting.
func (pm *Machine) evaluatePaths() {
	if len(pm.paths) == 0 {
		pm.state = StateSyncing
		return
	}
	pm.mostLikely = pm.paths[0].room
	if len(pm.paths) == 1 {
		pm.state = StateApproved
		pm.paths[0].approve()
		pm.paths = nil
		pm.mostLikely = pm.refresh(pm.mostLikely)
	} else {
		pm.state = StateExperimenting
	}
	pm.moved = pm.mostLikely
}
