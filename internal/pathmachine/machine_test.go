package pathmachine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

type roomSpec struct {
	name  string
	desc  string
	pos   mapdata.Coordinate
	exits []mapdata.ExitDirection
}

// template returns the unsaved room a spec describes.
func (s roomSpec) template() *mapdata.Room {
	r := mapdata.NewRoom(s.pos)
	r.Name = s.name
	r.StaticDesc = s.desc
	r.Terrain = mapdata.TerrainIndoors
	for _, d := range s.exits {
		e := r.Exit(d)
		e.ExitFlags = e.ExitFlags.With(mapdata.ExitExit)
	}
	r.UpToDate = true
	return r
}

// seen returns the observation made when entering the room by move.
func (s roomSpec) seen(move parseevent.CommandID) *parseevent.ParseEvent {
	return parseevent.FromRoom(s.template(), move)
}

func addRoom(t *testing.T, m *mapdata.MapData, s roomSpec) mapdata.RoomID {
	t.Helper()
	var id mapdata.RoomID
	require.NoError(t, m.Execute(mapdata.ActionFunc(func(tx *mapdata.Tx) error {
		id = tx.Create(s.template())
		return nil
	})))
	return id
}

func link(t *testing.T, m *mapdata.MapData, from mapdata.RoomID, dir mapdata.ExitDirection, to mapdata.RoomID) {
	t.Helper()
	require.NoError(t, m.Execute(mapdata.AddExit{From: from, To: to, Dir: dir, TwoWay: true}))
}

func newTestMachine(t *testing.T, mode Mode) (*Machine, *mapdata.MapData) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := mapdata.New(logger)
	return New(m, DefaultParams(), mode, logger), m
}

type recorder struct {
	mu    sync.Mutex
	rooms []mapdata.RoomID
}

func (r *recorder) PlayerMoved(room *mapdata.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room.ID)
}

func (r *recorder) last() mapdata.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms) == 0 {
		return mapdata.InvalidRoomID
	}
	return r.rooms[len(r.rooms)-1]
}

var (
	hall    = roomSpec{name: "The Great Hall", desc: "Banners hang from the high rafters.", exits: []mapdata.ExitDirection{mapdata.North}}
	garden  = roomSpec{name: "A Quiet Garden", desc: "Roses grow along the old stone wall.", pos: mapdata.Coordinate{Y: -1}, exits: []mapdata.ExitDirection{mapdata.North, mapdata.South}}
	meadow  = roomSpec{name: "A Sunny Meadow", desc: "Bees hum over the clover.", pos: mapdata.Coordinate{Y: -2}, exits: []mapdata.ExitDirection{mapdata.South}}
	corrA   = roomSpec{name: "A Narrow Corridor", desc: "The walls are bare.", exits: []mapdata.ExitDirection{mapdata.North}}
	corrB   = roomSpec{name: "A Narrow Corridor", desc: "The walls are bare.", pos: mapdata.Coordinate{X: 5}, exits: []mapdata.ExitDirection{mapdata.North}}
	armory  = roomSpec{name: "The Armory", desc: "Racks of spears line the walls.", pos: mapdata.Coordinate{Y: -1}, exits: []mapdata.ExitDirection{mapdata.South}}
	kitchen = roomSpec{name: "The Kitchen", desc: "Pots bubble over the fire.", pos: mapdata.Coordinate{X: 5, Y: -1}, exits: []mapdata.ExitDirection{mapdata.South}}
)

func TestNew_StartsSyncing(t *testing.T) {
	pm, _ := newTestMachine(t, ModePlay)
	assert.Equal(t, StateSyncing, pm.State())
	assert.Empty(t, pm.Candidates())
	_, ok := pm.CurrentRoom()
	assert.False(t, ok)
}

func TestEvent_SyncsOnUniqueRoom(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	hallID := addRoom(t, m, hall)
	addRoom(t, m, garden)
	rec := &recorder{}
	pm.AddListener(rec)

	pm.Event(hall.seen(parseevent.CmdLook))

	assert.Equal(t, StateApproved, pm.State())
	assert.Equal(t, []mapdata.RoomID{hallID}, pm.Candidates())
	cur, ok := pm.CurrentRoom()
	require.True(t, ok)
	assert.Equal(t, hallID, cur.ID)
	assert.Equal(t, hallID, rec.last())
}

func TestEvent_SyncingSkipsIncompleteObservations(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	addRoom(t, m, hall)

	pm.Event(parseevent.New(parseevent.CmdLook, hall.name, "", "", 0, 0, 0))
	assert.Equal(t, StateSyncing, pm.State(), "two missing fields exceed the skip budget")
}

func TestEvent_FollowsKnownExit(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	hallID := addRoom(t, m, hall)
	gardenID := addRoom(t, m, garden)
	link(t, m, hallID, mapdata.North, gardenID)
	require.NoError(t, pm.SetCurrentRoom(hallID, false))

	pm.Event(garden.seen(parseevent.CmdNorth))
	assert.Equal(t, StateApproved, pm.State())
	cur, ok := pm.CurrentRoom()
	require.True(t, ok)
	assert.Equal(t, gardenID, cur.ID)

	pm.Event(hall.seen(parseevent.CmdSouth))
	cur, ok = pm.CurrentRoom()
	require.True(t, ok)
	assert.Equal(t, hallID, cur.ID)
}

func TestEvent_MapModeCreatesRoomNorth(t *testing.T) {
	pm, m := newTestMachine(t, ModeMap)
	hallID := addRoom(t, m, hall)
	require.NoError(t, pm.SetCurrentRoom(hallID, false))
	rec := &recorder{}
	pm.AddListener(rec)

	pm.Event(garden.seen(parseevent.CmdNorth))

	require.Equal(t, StateApproved, pm.State())
	require.Equal(t, 2, m.RoomCount())
	created, ok := m.RoomAt(mapdata.Coordinate{Y: -1})
	require.True(t, ok)
	assert.Equal(t, garden.name, created.Name)
	assert.False(t, created.Temporary)
	assert.Equal(t, []mapdata.RoomID{created.ID}, pm.Candidates())
	assert.Equal(t, created.ID, rec.last())

	h, ok := m.Room(hallID)
	require.True(t, ok)
	assert.True(t, h.Exit(mapdata.North).ContainsOut(created.ID))
	assert.True(t, created.Exit(mapdata.South).ContainsOut(hallID))

	pm.Event(hall.seen(parseevent.CmdSouth))
	cur, ok := pm.CurrentRoom()
	require.True(t, ok)
	assert.Equal(t, hallID, cur.ID)
	assert.Equal(t, 2, m.RoomCount())
}

func TestEvent_PlayModeNeverChangesMap(t *testing.T) {
	for _, mode := range []Mode{ModePlay, ModeOffline} {
		t.Run(mode.String(), func(t *testing.T) {
			pm, m := newTestMachine(t, mode)
			hallID := addRoom(t, m, hall)
			require.NoError(t, pm.SetCurrentRoom(hallID, false))

			pm.Event(garden.seen(parseevent.CmdNorth))

			assert.Equal(t, 1, m.RoomCount())
			assert.Equal(t, StateSyncing, pm.State())
			h, _ := m.Room(hallID)
			assert.Empty(t, h.Exit(mapdata.North).Outgoing())
		})
	}
}

func TestEvent_AmbiguousStartCollapses(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	a := addRoom(t, m, corrA)
	b := addRoom(t, m, corrB)
	link(t, m, a, mapdata.North, addRoom(t, m, armory))
	kitchenID := addRoom(t, m, kitchen)
	link(t, m, b, mapdata.North, kitchenID)

	pm.Event(corrA.seen(parseevent.CmdLook))
	assert.Equal(t, StateExperimenting, pm.State())
	assert.ElementsMatch(t, []mapdata.RoomID{a, b}, pm.Candidates())

	pm.Event(kitchen.seen(parseevent.CmdNorth))
	assert.Equal(t, StateApproved, pm.State())
	cur, ok := pm.CurrentRoom()
	require.True(t, ok)
	assert.Equal(t, kitchenID, cur.ID)
}

func TestEvent_RecordsSundeath(t *testing.T) {
	pm, m := newTestMachine(t, ModeMap)
	hallID := addRoom(t, m, hall)
	gardenID := addRoom(t, m, garden)
	meadowID := addRoom(t, m, meadow)
	link(t, m, hallID, mapdata.North, gardenID)
	link(t, m, gardenID, mapdata.North, meadowID)
	require.NoError(t, pm.SetCurrentRoom(hallID, false))

	seen := garden.seen(parseevent.CmdNorth)
	sun := parseevent.ConnectedRoomFlags(0).
		WithLight(mapdata.North, parseevent.LightDirectSun).
		WithLight(mapdata.South, parseevent.LightIndirectSun).
		WithValid()
	pm.Event(parseevent.New(parseevent.CmdNorth, seen.RoomName(), "", seen.StaticDesc(), seen.ExitsFlags(), seen.PromptFlags(), sun))

	mw, ok := m.Room(meadowID)
	require.True(t, ok)
	assert.Equal(t, mapdata.SundeathSundeath, mw.Sundeath)
	h, ok := m.Room(hallID)
	require.True(t, ok)
	assert.Equal(t, mapdata.SundeathNoSundeath, h.Sundeath)
}

func TestEvent_BothLightsRecordSundeath(t *testing.T) {
	pm, m := newTestMachine(t, ModeMap)
	hallID := addRoom(t, m, hall)
	gardenID := addRoom(t, m, garden)
	meadowID := addRoom(t, m, meadow)
	link(t, m, hallID, mapdata.North, gardenID)
	link(t, m, gardenID, mapdata.North, meadowID)
	require.NoError(t, pm.SetCurrentRoom(hallID, false))

	seen := garden.seen(parseevent.CmdNorth)
	sun := parseevent.ConnectedRoomFlags(0).
		WithLight(mapdata.North, parseevent.LightBoth).
		WithValid()
	pm.Event(parseevent.New(parseevent.CmdNorth, seen.RoomName(), "", seen.StaticDesc(), seen.ExitsFlags(), seen.PromptFlags(), sun))

	mw, ok := m.Room(meadowID)
	require.True(t, ok)
	assert.Equal(t, mapdata.SundeathSundeath, mw.Sundeath)
}

func TestSetCurrentRoom(t *testing.T) {
	pm, m := newTestMachine(t, ModeMap)
	hallID := addRoom(t, m, hall)

	err := pm.SetCurrentRoom(hallID+100, false)
	require.ErrorIs(t, err, mapdata.ErrRoomNotFound)
	assert.Equal(t, StateSyncing, pm.State())

	pm.Event(parseevent.New(parseevent.CmdLook, "The Small Hall", "", hall.desc, 0, 0, 0))
	require.NoError(t, pm.SetCurrentRoom(hallID, true))
	assert.Equal(t, StateApproved, pm.State())
	h, ok := m.Room(hallID)
	require.True(t, ok)
	assert.Equal(t, "The Small Hall", h.Name, "the last observation updates the room")
}

func TestReleaseAllPaths(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	hallID := addRoom(t, m, hall)
	require.NoError(t, pm.SetCurrentRoom(hallID, false))

	pm.ReleaseAllPaths()
	assert.Equal(t, StateSyncing, pm.State())
	assert.Empty(t, pm.Candidates())
}

func TestListenersMayCallBack(t *testing.T) {
	pm, m := newTestMachine(t, ModePlay)
	hallID := addRoom(t, m, hall)
	var states []State
	pm.AddListener(ListenerFunc(func(*mapdata.Room) {
		states = append(states, pm.State())
	}))

	require.NoError(t, pm.SetCurrentRoom(hallID, false))
	assert.Equal(t, []State{StateApproved}, states)
}

func TestSetMode(t *testing.T) {
	pm, _ := newTestMachine(t, ModePlay)
	pm.SetMode(ModeMap)
	assert.Equal(t, ModeMap, pm.Mode())

	mode, err := ParseMode("offline")
	require.NoError(t, err)
	assert.Equal(t, ModeOffline, mode)
	_, err = ParseMode("dance")
	assert.Error(t, err)
}

func TestProperty_PlayAndOfflineNeverChangeMap(t *testing.T) {
	cave := roomSpec{name: "A Dark Cave", desc: "Water drips from the ceiling.", pos: mapdata.Coordinate{X: 9}, exits: []mapdata.ExitDirection{mapdata.East}}
	specs := []roomSpec{hall, garden, meadow, corrA, corrB, armory, kitchen, cave}
	moves := []parseevent.CommandID{
		parseevent.CmdNorth, parseevent.CmdSouth, parseevent.CmdEast, parseevent.CmdWest,
		parseevent.CmdUp, parseevent.CmdDown, parseevent.CmdUnknown, parseevent.CmdLook,
		parseevent.CmdFlee, parseevent.CmdNone,
	}

	rapid.Check(t, func(rt *rapid.T) {
		mode := rapid.SampledFrom([]Mode{ModePlay, ModeOffline}).Draw(rt, "mode")
		logger := zaptest.NewLogger(t)
		m := mapdata.New(logger)
		hallID := addRoom(t, m, hall)
		gardenID := addRoom(t, m, garden)
		meadowID := addRoom(t, m, meadow)
		addRoom(t, m, corrA)
		corrBID := addRoom(t, m, corrB)
		kitchenID := addRoom(t, m, kitchen)
		link(t, m, hallID, mapdata.North, gardenID)
		link(t, m, gardenID, mapdata.North, meadowID)
		link(t, m, corrBID, mapdata.North, kitchenID)

		pm := New(m, DefaultParams(), mode, logger)
		if rapid.Bool().Draw(rt, "located") {
			require.NoError(rt, pm.SetCurrentRoom(hallID, rapid.Bool().Draw(rt, "update")))
		}
		before := m.Rooms()

		n := rapid.IntRange(1, 25).Draw(rt, "events")
		for i := 0; i < n; i++ {
			spec := rapid.SampledFrom(specs).Draw(rt, "room")
			move := rapid.SampledFrom(moves).Draw(rt, "move")
			seen := spec.seen(move)
			light := parseevent.ConnectedRoomFlags(rapid.Uint16Range(0, 0xfff).Draw(rt, "light")).WithValid()
			name, desc := seen.RoomName(), seen.StaticDesc()
			switch rapid.IntRange(0, 3).Draw(rt, "skip") {
			case 1:
				name = ""
			case 2:
				desc = ""
			case 3:
				name, desc = "", ""
			}
			pm.Event(parseevent.New(move, name, "", desc, seen.ExitsFlags(), seen.PromptFlags(), light))
			if rapid.IntRange(0, 9).Draw(rt, "reset") == 0 {
				pm.ReleaseAllPaths()
			}
		}

		assert.Equal(rt, len(before), m.RoomCount())
		assert.Equal(rt, before, m.Rooms())
	})
}
