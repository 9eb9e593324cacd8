package pathmachine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// signaler counts how many paths hold each room. A temporary room nobody
// holds any more is removed; approving a path keeps its rooms.
type signaler struct {
	logger  *zap.Logger
	m       Map
	exec    func(a mapdata.Action, mutates bool) error
	holds   map[mapdata.RoomID]int
	holders map[mapdata.RoomID]map[int]struct{}

	// deferred lists temporary rooms whose removal was refused by a bulk block.
	deferred []mapdata.RoomID
}

func newSignaler(logger *zap.Logger, m Map, exec func(mapdata.Action, bool) error) *signaler {
	return &signaler{
		logger:  logger,
		m:       m,
		exec:    exec,
		holds:   make(map[mapdata.RoomID]int),
		holders: make(map[mapdata.RoomID]map[int]struct{}),
	}
}

// hold records that locker references the room.
func (s *signaler) hold(id mapdata.RoomID, locker int) {
	if s.holders[id] == nil {
		s.holders[id] = make(map[int]struct{})
	}
	s.holders[id][locker] = struct{}{}
	s.holds[id]++
}

// lockers returns how many distinct lockers hold the room.
func (s *signaler) lockers(id mapdata.RoomID) int { return len(s.holders[id]) }

// release drops one hold. The last release of a temporary room removes it.
func (s *signaler) release(id mapdata.RoomID) {
	n, ok := s.holds[id]
	if !ok || n == 0 {
		s.logger.Debug("release without hold", zap.Uint32("room", uint32(id)))
		return
	}
	if n > 1 {
		s.holds[id] = n - 1
		return
	}
	delete(s.holds, id)
	delete(s.holders, id)
	s.dropIfTemporary(id)
}

// touch removes the room if it is temporary and unheld.
func (s *signaler) touch(id mapdata.RoomID) {
	if s.holds[id] == 0 {
		s.dropIfTemporary(id)
	}
}

func (s *signaler) dropIfTemporary(id mapdata.RoomID) {
	r, ok := s.m.Room(id)
	if !ok || !r.Temporary {
		return
	}
	if err := s.exec(mapdata.RemoveRoom{ID: id}, false); errors.Is(err, mapdata.ErrMapBlocked) {
		s.deferred = append(s.deferred, id)
	}
}

// retryDeferred removes the temporary rooms left behind while the map was
// blocked, unless a path has picked them up again since.
func (s *signaler) retryDeferred() {
	if len(s.deferred) == 0 {
		return
	}
	ids := s.deferred
	s.deferred = nil
	for _, id := range ids {
		s.touch(id)
	}
}

// keep links the room to its predecessor, makes it permanent, and drops
// one hold. Rooms created by the mapper get a two-way link.
func (s *signaler) keep(room *mapdata.Room, dir mapdata.ExitDirection, from mapdata.RoomID) {
	current, ok := s.m.Room(room.ID)
	if !ok {
		s.release(room.ID)
		return
	}
	if dir.IsNESWUD() && from != mapdata.InvalidRoomID {
		s.exec(mapdata.AddExit{From: from, To: room.ID, Dir: dir, TwoWay: current.Temporary}, true)
	}
	if current.Temporary {
		s.exec(mapdata.MakePermanent{ID: room.ID}, true)
	}
	s.release(room.ID)
}

// reset forgets every hold without touching the map.
func (s *signaler) reset() {
	clear(s.holds)
	clear(s.holders)
}
