package pathmachine

import (
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

// experiment extends the previous generation of paths by one step and keeps
// the plausible ones.
type experiment struct {
	params    Params
	locker    int
	direction mapdata.ExitDirection
	offset    mapdata.Coordinate
	previous  []*Path
	next      []*Path
	best      *Path
	second    *Path
	numPaths  int
}

func newExperiment(previous []*Path, dir mapdata.ExitDirection, params Params, locker int) *experiment {
	return &experiment{
		params:    params,
		locker:    locker,
		direction: dir,
		offset:    dir.Offset(),
		previous:  previous,
	}
}

// augment forks path into room and tracks the two best scores.
func (x *experiment) augment(path *Path, room *mapdata.Room) {
	expected := path.room.Position.Add(x.offset)
	working := path.fork(room, expected, x.params, x.locker, x.direction)
	switch {
	case x.best == nil:
		x.best = working
	case working.prob > x.best.prob:
		x.next = append(x.next, x.best)
		x.second = x.best
		x.best = working
	default:
		if x.second == nil || working.prob > x.second.prob {
			x.second = working
		}
		x.next = append(x.next, working)
	}
	x.numPaths++
}

// crossover forks every previous path into room.
func (x *experiment) crossover(room *mapdata.Room) {
	for _, p := range x.previous {
		x.augment(p, room)
	}
}

// evaluate denies dead previous paths and returns the survivors with the
// best path first. A best path that clearly beats the runner-up survives
// alone.
func (x *experiment) evaluate() []*Path {
	for _, p := range x.previous {
		if !p.hasChildren() {
			p.deny()
		}
	}
	x.previous = nil

	if x.best == nil {
		return nil
	}
	p := x.params
	if x.second == nil ||
		x.best.prob > x.second.prob*p.AcceptBestRelative ||
		x.best.prob > x.second.prob+p.AcceptBestAbsolute {
		for _, other := range x.next {
			other.deny()
		}
		return []*Path{x.best}
	}

	kept := []*Path{x.best}
	for _, working := range x.next {
		tooWeak := x.best.prob > working.prob*float64(p.MaxPaths)/float64(x.numPaths)
		duplicate := x.best.prob <= working.prob && x.best.room.ID == working.room.ID
		if tooWeak || duplicate {
			working.deny()
			continue
		}
		kept = append(kept, working)
	}
	return kept
}

// oneByOne collects rooms reachable from each previous path and keeps the
// ones that match the observation exactly.
type oneByOne struct {
	*experiment
	event     *parseevent.ParseEvent
	sig       *signaler
	tolerance int
	current   *Path
}

func newOneByOne(ev *parseevent.ParseEvent, params Params, locker int, sig *signaler) *oneByOne {
	return &oneByOne{
		experiment: newExperiment(nil, ev.Move().Direction(), params, locker),
		event:      ev,
		sig:        sig,
		tolerance:  params.MatchingTolerance,
	}
}

// addPath makes path the parent of the rooms received next.
func (o *oneByOne) addPath(path *Path) {
	o.previous = append(o.previous, path)
	o.current = path
}

func (o *oneByOne) receive(room *mapdata.Room) {
	if Compare(room, o.event, o.tolerance) == Equal {
		o.augment(o.current, room)
		return
	}
	o.sig.touch(room.ID)
}
