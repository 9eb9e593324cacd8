package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// SampleSnapshot returns a three-room map: a hall with a garden to the north
// and a cellar below behind a hidden trapdoor.
func SampleSnapshot() mapdata.Snapshot {
	hall := mapdata.NewRoom(mapdata.Coordinate{})
	hall.ID = 0
	hall.ServerID = 4711
	hall.Name = "The Great Hall"
	hall.StaticDesc = "Banners hang from the high rafters."
	hall.Note = "safe"
	hall.Terrain = mapdata.TerrainIndoors
	hall.Light = mapdata.LightLit
	hall.MobFlags = hall.MobFlags.With(mapdata.MobFlag(1))
	hall.UpToDate = true

	garden := mapdata.NewRoom(mapdata.Coordinate{Y: -1})
	garden.ID = 1
	garden.Name = "A Quiet Garden"
	garden.StaticDesc = "Roses grow along the old stone wall."
	garden.DynamicDesc = "A bee buzzes here."
	garden.Terrain = mapdata.TerrainField
	garden.Sundeath = mapdata.SundeathSundeath

	cellar := mapdata.NewRoom(mapdata.Coordinate{Z: -1})
	cellar.ID = 2
	cellar.Name = "A Damp Cellar"
	cellar.Terrain = mapdata.TerrainCavern
	cellar.LoadFlags = cellar.LoadFlags.With(mapdata.LoadFlag(2))

	hall.Exit(mapdata.North).AddOut(garden.ID)
	garden.Exit(mapdata.South).AddOut(hall.ID)
	trapdoor := hall.Exit(mapdata.Down)
	trapdoor.AddOut(cellar.ID)
	trapdoor.ExitFlags = trapdoor.ExitFlags.With(mapdata.ExitDoor)
	trapdoor.DoorFlags = trapdoor.DoorFlags.With(mapdata.DoorHidden)
	trapdoor.DoorName = "trapdoor"
	cellar.Exit(mapdata.Up).AddOut(hall.ID)

	return mapdata.Snapshot{Rooms: []*mapdata.Room{hall, garden, cellar}}
}

// RequireSameMap fails the test unless got carries the same rooms, fields
// and outgoing links as want, in id order.
func RequireSameMap(t *testing.T, want, got mapdata.Snapshot) {
	t.Helper()
	require.Len(t, got.Rooms, len(want.Rooms))
	for i, w := range want.Rooms {
		g := got.Rooms[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.ServerID, g.ServerID, "room %d", w.ID)
		assert.Equal(t, w.Name, g.Name, "room %d", w.ID)
		assert.Equal(t, w.StaticDesc, g.StaticDesc, "room %d", w.ID)
		assert.Equal(t, w.DynamicDesc, g.DynamicDesc, "room %d", w.ID)
		assert.Equal(t, w.Note, g.Note, "room %d", w.ID)
		assert.Equal(t, w.Terrain, g.Terrain, "room %d", w.ID)
		assert.Equal(t, w.Light, g.Light, "room %d", w.ID)
		assert.Equal(t, w.Sundeath, g.Sundeath, "room %d", w.ID)
		assert.Equal(t, w.MobFlags, g.MobFlags, "room %d", w.ID)
		assert.Equal(t, w.LoadFlags, g.LoadFlags, "room %d", w.ID)
		assert.Equal(t, w.Position, g.Position, "room %d", w.ID)
		assert.Equal(t, w.UpToDate, g.UpToDate, "room %d", w.ID)
		for _, d := range mapdata.AllExits {
			we, ge := w.Exit(d), g.Exit(d)
			assert.Equal(t, we.ExitFlags, ge.ExitFlags, "room %d %s", w.ID, d)
			assert.Equal(t, we.DoorFlags, ge.DoorFlags, "room %d %s", w.ID, d)
			assert.Equal(t, we.DoorName, ge.DoorName, "room %d %s", w.ID, d)
			assert.ElementsMatch(t, we.Outgoing(), ge.Outgoing(), "room %d %s", w.ID, d)
		}
	}
}
