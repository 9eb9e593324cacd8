package pathmachine

import (
	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

// syncing starts a fresh generation of paths from every room that could
// have produced the observation.
type syncing struct {
	logger   *zap.Logger
	params   Params
	locker   int
	event    *parseevent.ParseEvent
	parent   *Path
	paths    []*Path
	numPaths int
	overflow bool
}

func newSyncing(logger *zap.Logger, previous []*Path, ev *parseevent.ParseEvent, params Params, locker int, sig *signaler) *syncing {
	return &syncing{
		logger: logger,
		params: params,
		locker: locker,
		event:  ev,
		parent: newRoot(mapdata.NewRoom(mapdata.Coordinate{}), sig),
		paths:  previous,
	}
}

func (s *syncing) receive(room *mapdata.Room) {
	if s.overflow {
		return
	}
	if Compare(room, s.event, s.params.MatchingTolerance) == Different {
		return
	}
	s.numPaths++
	if s.numPaths > s.params.MaxPaths {
		s.logger.Debug("too many candidates, giving up", zap.Int("max_paths", s.params.MaxPaths))
		for _, p := range s.paths {
			p.deny()
		}
		s.paths = nil
		s.overflow = true
		return
	}
	p := s.parent.fork(room, room.Position, s.params, s.locker, mapdata.None)
	p.prob = 1
	if room.Temporary {
		p.prob /= s.params.NewRoomPenalty
	}
	s.paths = append(s.paths, p)
}

// evaluate returns the candidate paths.
func (s *syncing) evaluate() []*Path {
	if !s.parent.hasChildren() {
		s.parent.deny()
	}
	return s.paths
}
