package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

func TestParsePrompt(t *testing.T) {
	tests := []struct {
		prompt  string
		terrain mapdata.TerrainType
		lit     bool
	}{
		{"*[ >", mapdata.TerrainIndoors, true},
		{")f >", mapdata.TerrainForest, true},
		{"o. >", mapdata.TerrainField, false},
		{"!# >", mapdata.TerrainCity, false},
		{"~ >", mapdata.TerrainWater, false},
		{"*O >", mapdata.TerrainCavern, true},
		{"*: >", mapdata.TerrainBrush, true},
		{"> ", mapdata.TerrainUndefined, false},
		{"", mapdata.TerrainUndefined, false},
	}
	for _, tc := range tests {
		t.Run(tc.prompt, func(t *testing.T) {
			p := ParsePrompt(tc.prompt)
			assert.True(t, p.IsValid())
			assert.Equal(t, tc.terrain, p.Terrain())
			assert.Equal(t, tc.lit, p.IsLit())
		})
	}
}

func TestParseExits_Markers(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	exits, connected := p.ParseExits(`Exits: north, [east], =south=, /up\, (west).`)

	require.True(t, exits.IsValid())
	assert.True(t, connected.IsValid())
	assert.Equal(t, parseevent.ExitBitExit, exits.Get(mapdata.North))
	assert.Equal(t, parseevent.ExitBitExit|parseevent.ExitBitDoor, exits.Get(mapdata.East))
	assert.Equal(t, parseevent.ExitBitExit|parseevent.ExitBitRoad, exits.Get(mapdata.South))
	assert.Equal(t, parseevent.ExitBitExit|parseevent.ExitBitClimb, exits.Get(mapdata.Up))
	assert.Equal(t, parseevent.ExitBitExit|parseevent.ExitBitDoor, exits.Get(mapdata.West))
	assert.Zero(t, exits.Get(mapdata.Down))
	assert.False(t, connected.HasAnyDirectSunlight())
}

func TestParseExits_None(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	exits, _ := p.ParseExits("Exits: none.")
	assert.True(t, exits.IsValid())
	for _, d := range mapdata.AllExits {
		assert.Zero(t, exits.Get(d), d.String())
	}
}

func TestParseExits_PortalInvalidates(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	exits, connected := p.ParseExits("Exits: {north}, south.")
	assert.False(t, exits.IsValid())
	assert.False(t, connected.IsValid())
}

func TestParseExits_NotAnExitsLine(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	exits, _ := p.ParseExits("You see nothing special.")
	assert.False(t, exits.IsValid())
}

func TestParseExits_Sunlight(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	_, connected := p.ParseExits("Exits: *north*, east, [west].")
	assert.True(t, connected.HasDirectSunlight(mapdata.North))
	assert.Equal(t, parseevent.LightIndirectSun, connected.Light(mapdata.East))
	assert.Equal(t, parseevent.LightNone, connected.Light(mapdata.West), "closed doors hide indirect light")
	assert.False(t, p.TrollMode())
}

func TestParseExits_TrollModeIsSticky(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	_, connected := p.ParseExits("Exits: ^north^.")
	assert.True(t, p.TrollMode())
	assert.True(t, connected.IsTrollMode())

	_, connected = p.ParseExits("Exits: south.")
	assert.True(t, connected.IsTrollMode())
	assert.Equal(t, parseevent.LightIndirectSun, connected.Light(mapdata.South))
}

func TestParseSunEvent(t *testing.T) {
	assert.Equal(t, SunRise, ParseSunEvent(`Event.Sun {"what":"rise"}`))
	assert.Equal(t, SunLight, ParseSunEvent(`Event.Sun { "what": "light" }`))
	assert.Equal(t, SunSet, ParseSunEvent(`event.sun {"what":"set"}`))
	assert.Equal(t, SunDark, ParseSunEvent(`Event.Sun {"what":"dark"}`))
	assert.Equal(t, SunNone, ParseSunEvent(`Event.Sun {"what":"eclipse"}`))
	assert.Equal(t, SunNone, ParseSunEvent(`Event.Moon {"what":"rise"}`))
	assert.Equal(t, SunNone, ParseSunEvent(`Event.Sun not-json`))
}
