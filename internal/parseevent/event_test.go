package parseevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

func TestNew_CountsSkippedFields(t *testing.T) {
	prompt := NewPromptFlags(mapdata.TerrainField).WithValid()
	assert.Equal(t, 0, New(CmdNorth, "Field", "", "Grass.", 0, prompt, 0).NumSkipped())
	assert.Equal(t, 1, New(CmdNorth, "", "", "Grass.", 0, prompt, 0).NumSkipped())
	assert.Equal(t, 2, New(CmdNorth, "", "", "", 0, prompt, 0).NumSkipped())
	assert.Equal(t, 3, Dummy(CmdLook).NumSkipped())
}

func TestCommand_Direction(t *testing.T) {
	assert.Equal(t, mapdata.North, CmdNorth.Direction())
	assert.Equal(t, mapdata.Down, CmdDown.Direction())
	assert.Equal(t, mapdata.Unknown, CmdFlee.Direction())
	assert.Equal(t, mapdata.None, CmdLook.Direction())
	assert.True(t, CmdUnknown.MayMove())
	assert.False(t, CmdScout.MayMove())
}

func TestParseCommand(t *testing.T) {
	for in, want := range map[string]CommandID{
		"n": CmdNorth, "south": CmdSouth, "u": CmdUp, "look": CmdLook, "l": CmdLook, "flee": CmdFlee,
	} {
		got, ok := ParseCommand(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseCommand("dance")
	assert.False(t, ok)
}

func TestExitFlags_PerDirection(t *testing.T) {
	var f ExitFlags
	f = f.Set(mapdata.North, ExitBitExit|ExitBitDoor)
	f = f.Add(mapdata.Down, ExitBitClimb)
	assert.Equal(t, ExitBitExit|ExitBitDoor, f.Get(mapdata.North))
	assert.Equal(t, ExitBitClimb, f.Get(mapdata.Down))
	assert.Zero(t, f.Get(mapdata.East))
	assert.Zero(t, f.Get(mapdata.Unknown))
	assert.False(t, f.IsValid())
	assert.True(t, f.WithValid().IsValid())
	assert.False(t, f.WithValid().WithoutValid().IsValid())

	mf := f.MapFlags(mapdata.North)
	assert.True(t, mf.Contains(mapdata.ExitExit))
	assert.True(t, mf.Contains(mapdata.ExitDoor))
	assert.False(t, mf.Contains(mapdata.ExitRoad))
}

func TestPromptFlags(t *testing.T) {
	p := NewPromptFlags(mapdata.TerrainCavern)
	assert.Equal(t, mapdata.TerrainCavern, p.Terrain())
	assert.False(t, p.IsValid())
	p = p.WithLit().WithValid()
	assert.True(t, p.IsLit())
	assert.True(t, p.IsValid())
	assert.Equal(t, mapdata.TerrainCavern, p.Terrain())
	assert.Equal(t, mapdata.TerrainRoad, p.WithTerrain(mapdata.TerrainRoad).Terrain())
}

func TestConnectedRoomFlags(t *testing.T) {
	var c ConnectedRoomFlags
	assert.False(t, c.HasAnyDirectSunlight())
	c = c.WithLight(mapdata.West, LightDirectSun).WithLight(mapdata.Up, LightIndirectSun)
	assert.True(t, c.HasDirectSunlight(mapdata.West))
	assert.False(t, c.HasDirectSunlight(mapdata.Up))
	assert.Equal(t, LightIndirectSun, c.Light(mapdata.Up))
	assert.True(t, c.HasAnyDirectSunlight())
	assert.False(t, c.IsValid())
	assert.True(t, c.WithValid().IsValid())
	assert.True(t, c.WithTrollMode().IsTrollMode())
	assert.Equal(t, LightDirectSun, c.WithValid().WithTrollMode().Light(mapdata.West))
}

func TestConnectedRoomFlags_BothLightsCountAsDirect(t *testing.T) {
	c := ConnectedRoomFlags(0).WithLight(mapdata.East, LightBoth)
	assert.True(t, c.HasDirectSunlight(mapdata.East))
	assert.True(t, c.HasAnyDirectSunlight())
	assert.False(t, c.HasDirectSunlight(mapdata.West))
}

func TestFromRoom(t *testing.T) {
	r := mapdata.NewRoom(mapdata.Coordinate{})
	r.Name = "Bag End"
	r.StaticDesc = "A comfortable hobbit hole."
	r.Terrain = mapdata.TerrainIndoors
	r.Light = mapdata.LightLit
	r.Exit(mapdata.West).AddOut(3)
	r.Exit(mapdata.West).ExitFlags = r.Exit(mapdata.West).ExitFlags.With(mapdata.ExitDoor)

	ev := FromRoom(r, CmdLook)
	assert.Equal(t, 0, ev.NumSkipped())
	assert.Equal(t, ExitBitExit|ExitBitDoor, ev.ExitsFlags().Get(mapdata.West))
	assert.True(t, ev.ExitsFlags().IsValid())
	assert.True(t, ev.PromptFlags().IsLit())
	assert.Equal(t, mapdata.TerrainIndoors, ev.PromptFlags().Terrain())
	assert.Equal(t, mapdata.Query{Name: "Bag End", Terrain: mapdata.TerrainIndoors}, ev.Query())
}

func TestPropertyExitFlagsIndependentDirections(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var f ExitFlags
		want := map[mapdata.ExitDirection]ExitFlags{}
		for _, d := range mapdata.AllExits {
			bits := ExitFlags(rapid.Uint32Range(0, 15).Draw(t, d.String()))
			f = f.Set(d, bits)
			want[d] = bits
		}
		for _, d := range mapdata.AllExits {
			if f.Get(d) != want[d] {
				t.Fatalf("direction %s: got %b want %b", d, f.Get(d), want[d])
			}
		}
		if f.IsValid() {
			t.Fatalf("direction bits leaked into the valid bit")
		}
	})
}
