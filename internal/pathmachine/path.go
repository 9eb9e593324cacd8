package pathmachine

import (
	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// Path is one hypothesis about the rooms the player walked through. Paths
// form a tree: every fork records the room reached and the direction taken
// from the parent.
type Path struct {
	room     *mapdata.Room
	parent   *Path
	children map[*Path]struct{}
	prob     float64
	dir      mapdata.ExitDirection
	held     bool
	sig      *signaler
}

// newRoot starts a tree at room without holding it.
func newRoot(room *mapdata.Room, sig *signaler) *Path {
	return &Path{room: room, prob: 1, dir: mapdata.None, sig: sig}
}

// Room returns the room at the end of the path.
func (p *Path) Room() *mapdata.Room { return p.room }

// Prob returns the path's score.
func (p *Path) Prob() float64 { return p.prob }

func (p *Path) hasChildren() bool { return len(p.children) > 0 }

// fork extends p into room, reached by moving dir, and scores the result.
// A room at the expected coordinate, or one the known exit already leads to,
// earns the position bonus; rooms that contradict existing connections are
// penalised, temporary rooms doubly so.
func (p *Path) fork(room *mapdata.Room, expected mapdata.Coordinate, params Params, locker int, dir mapdata.ExitDirection) *Path {
	child := &Path{room: room, parent: p, dir: dir, held: true, sig: p.sig}
	p.sig.hold(room.ID, locker)
	if p.children == nil {
		p.children = make(map[*Path]struct{})
	}
	p.children[child] = struct{}{}

	dist := float64(expected.Distance(room.Position))
	known := !p.room.IsFake()
	switch {
	case dist < 0.5:
		dist = 1 / params.CorrectPositionBonus
	case dir.IsNESWUD() && known:
		e := p.room.Exit(dir)
		switch {
		case e.ContainsOut(room.ID):
			dist = 1 / params.CorrectPositionBonus
		case len(e.Outgoing()) > 0 || room.ID == p.room.ID:
			dist *= params.MultipleConnectionsPenalty
		case len(room.Exit(dir.Opposite()).Incoming()) > 0:
			dist *= params.MultipleConnectionsPenalty
		}
	case known:
		for _, d := range mapdata.AllExits {
			if p.room.Exit(d).ContainsOut(room.ID) {
				dist = 1 / params.CorrectPositionBonus
				break
			}
		}
	}
	dist /= float64(max(1, p.sig.lockers(room.ID)))
	if room.Temporary {
		dist *= params.NewRoomPenalty
	}
	child.prob = p.prob / dist
	return child
}

// approve keeps every room along the path and links each to its predecessor.
func (p *Path) approve() {
	if p.parent != nil {
		from := mapdata.InvalidRoomID
		if !p.parent.room.IsFake() {
			from = p.parent.room.ID
		}
		p.sig.keep(p.room, p.dir, from)
		delete(p.parent.children, p)
		p.parent.approve()
	}
	for child := range p.children {
		child.parent = nil
	}
	p.children = nil
}

// deny drops the path and every ancestor left without children, releasing
// the rooms they held.
func (p *Path) deny() {
	if p.hasChildren() {
		return
	}
	if p.held {
		p.sig.release(p.room.ID)
	}
	if p.parent != nil {
		delete(p.parent.children, p)
		p.parent.deny()
		p.parent = nil
	}
}
