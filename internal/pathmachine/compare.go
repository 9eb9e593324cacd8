package pathmachine

import (
	"strings"
	"unicode/utf8"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

// Comparison grades how well a room matches an observation.
type Comparison uint8

const (
	Equal Comparison = iota
	Tolerance
	Different
)

func (c Comparison) String() string {
	return [...]string{"equal", "tolerance", "different"}[c]
}

// Compare grades r against ev. tolerance is the mismatch budget in percent
// of each stored string's length; 100 or more accepts anything.
//
// The dynamic description is never compared. Exits are compared only when
// the observation carries valid exit flags.
func Compare(r *mapdata.Room, ev *parseevent.ParseEvent, tolerance int) Comparison {
	updated := r.UpToDate
	if tolerance >= 100 || (r.Name == "" && r.StaticDesc == "" && !updated) {
		return Tolerance
	}

	if pf := ev.PromptFlags(); pf.IsValid() && pf.Terrain() != r.Terrain && r.UpToDate {
		return Different
	}

	switch compareStrings(r.Name, ev.RoomName(), tolerance, true) {
	case Tolerance:
		updated = false
	case Different:
		return Different
	}

	switch compareStrings(r.StaticDesc, ev.StaticDesc(), tolerance, updated) {
	case Tolerance:
		updated = false
	case Different:
		return Different
	}

	switch compareWeakProps(r, ev) {
	case Tolerance:
		updated = false
	case Different:
		return Different
	}

	if updated {
		return Equal
	}
	return Tolerance
}

// compareStrings compares word by word, spending the budget on differing
// letters. An outdated room may hold a shorter text than the observation.
func compareStrings(stored, observed string, percent int, updated bool) Comparison {
	budget := percent * utf8.RuneCountInString(stored) / 100
	left := budget

	storedWords := strings.Fields(stored)
	observedWords := strings.Fields(observed)

	if len(observedWords) > 0 {
		i := 0
		for left >= 0 {
			if i >= len(storedWords) {
				if updated {
					left -= nonSpace(observedWords[min(i, len(observedWords)):])
				}
				break
			}
			if i >= len(observedWords) {
				left -= nonSpace(storedWords[i:])
				break
			}
			left -= wordDifference(observedWords[i], storedWords[i])
			i++
		}
	}

	switch {
	case left < 0:
		return Different
	case left != budget:
		return Tolerance
	case utf8.RuneCountInString(observed) != utf8.RuneCountInString(stored):
		return Tolerance
	}
	return Equal
}

// wordDifference counts differing letters position by position plus the
// length difference.
func wordDifference(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := min(len(ra), len(rb))
	diff := 0
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			diff++
		}
	}
	return diff + len(ra) - n + len(rb) - n
}

func nonSpace(words []string) int {
	n := 0
	for _, w := range words {
		n += utf8.RuneCountInString(w)
	}
	return n
}

// compareWeakProps compares light and exits. A single explainable
// difference (a secret door, a known door seen differently, a new road or
// climb) is tolerated; a second one is not.
func compareWeakProps(r *mapdata.Room, ev *parseevent.ParseEvent) Comparison {
	exitsValid := r.UpToDate
	tolerant := false

	if pf := ev.PromptFlags(); pf.IsValid() {
		if pf.IsLit() && r.Light != mapdata.LightLit && r.Sundeath == mapdata.SundeathNoSundeath {
			tolerant = true
		}
	}

	if observed := ev.ExitsFlags(); observed.IsValid() {
		previousDifference := false
		for _, d := range mapdata.AllExits {
			e := r.Exit(d)
			stored := parseevent.ExitBits(e)
			if !e.ExitFlags.IsEmpty() {
				exitsValid = true
				if previousDifference {
					return Different
				}
			}
			if e.IsNoMatch() {
				continue
			}
			seen := observed.Get(d)
			diff := seen ^ stored
			switch {
			case diff&(parseevent.ExitBitExit|parseevent.ExitBitDoor) != 0:
				switch {
				case !exitsValid:
					previousDifference = true
				case tolerant:
					return Different
				case stored&parseevent.ExitBitExit == 0 && seen&parseevent.ExitBitDoor != 0:
					tolerant = true
				case stored&parseevent.ExitBitDoor != 0:
					tolerant = true
				default:
					return Different
				}
			case diff&(parseevent.ExitBitRoad|parseevent.ExitBitClimb) != 0:
				tolerant = true
			}
		}
	}

	if tolerant || !exitsValid {
		return Tolerance
	}
	return Equal
}

// observableExitFlags are the exit flags an exits line can report.
var observableExitFlags = mapdata.ExitFlags(0).
	With(mapdata.ExitExit).
	With(mapdata.ExitDoor).
	With(mapdata.ExitRoad).
	With(mapdata.ExitClimb)

// UpdateRoom folds an observation into r. Fields the observation lacks mark
// the room as outdated.
func UpdateRoom(r *mapdata.Room, ev *parseevent.ParseEvent) {
	r.DynamicDesc = ev.DynamicDesc()

	if observed := ev.ExitsFlags(); observed.IsValid() {
		for _, d := range mapdata.AllExits {
			e := r.Exit(d)
			seen := observed.MapFlags(d)
			if r.UpToDate {
				e.ExitFlags = e.ExitFlags.Union(seen)
				continue
			}
			if e.IsDoor() && !seen.Contains(mapdata.ExitDoor) {
				seen = seen.With(mapdata.ExitDoor).With(mapdata.ExitExit)
			}
			if len(e.Outgoing()) > 0 {
				seen = seen.With(mapdata.ExitExit)
			}
			e.ExitFlags = e.ExitFlags.Difference(observableExitFlags).Union(seen)
		}
		r.UpToDate = true
	} else {
		r.UpToDate = false
	}

	if pf := ev.PromptFlags(); pf.IsValid() {
		r.Terrain = pf.Terrain()
		if pf.IsLit() {
			r.Light = mapdata.LightLit
		}
	} else {
		r.UpToDate = false
	}

	if desc := ev.StaticDesc(); desc != "" {
		r.StaticDesc = desc
	} else {
		r.UpToDate = false
	}

	if name := ev.RoomName(); name != "" {
		r.Name = name
	} else {
		r.UpToDate = false
	}
}
