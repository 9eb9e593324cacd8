// Package parser turns raw game output (prompts, exits lines and GMCP
// messages) into the packed flags carried by parse events.
package parser

import (
	"strings"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/parseevent"
)

var terrainGlyphs = map[byte]mapdata.TerrainType{
	'[': mapdata.TerrainIndoors,
	'#': mapdata.TerrainCity,
	'.': mapdata.TerrainField,
	'f': mapdata.TerrainForest,
	'(': mapdata.TerrainHills,
	'<': mapdata.TerrainMountains,
	'%': mapdata.TerrainShallow,
	'~': mapdata.TerrainWater,
	'W': mapdata.TerrainRapids,
	'U': mapdata.TerrainUnderwater,
	'+': mapdata.TerrainRoad,
	'=': mapdata.TerrainTunnel,
	'O': mapdata.TerrainCavern,
	':': mapdata.TerrainBrush,
}

// ParsePrompt decodes the light and terrain glyphs at the start of a prompt.
// An unknown terrain glyph leaves the terrain undefined.
//
// Postcondition: The returned flags are always valid.
func ParsePrompt(prompt string) parseevent.PromptFlags {
	var flags parseevent.PromptFlags
	i := 0
	if len(prompt) > 0 {
		switch prompt[0] {
		case '*', ')':
			flags = flags.WithLit()
			i++
		case '!', 'o':
			i++
		}
	}
	if i < len(prompt) {
		if t, ok := terrainGlyphs[prompt[i]]; ok {
			flags = flags.WithTerrain(t)
		}
	}
	return flags.WithValid()
}

// Parser keeps the state that spans several lines of game output.
type Parser struct {
	logger    *zap.Logger
	trollMode bool
}

// New creates a Parser.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("parser")}
}

// TrollMode reports whether troll exit markers have been seen.
func (p *Parser) TrollMode() bool { return p.trollMode }

// ParseExits decodes an "Exits: ..." line. Lines of a different shape yield
// invalid flags. A portal marker makes the whole observation untrustworthy,
// so the flags stay invalid.
func (p *Parser) ParseExits(line string) (parseevent.ExitFlags, parseevent.ConnectedRoomFlags) {
	var (
		exits     parseevent.ExitFlags
		connected parseevent.ConnectedRoomFlags
		closed    [mapdata.NumExits]bool
	)
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "Exits:")
	if !ok {
		return exits, connected
	}

	var door, isClosed, road, climb, portal, directSun bool
	reset := func() { door, isClosed, road, climb, directSun = false, false, false, false, false }

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch c {
		case '(', '#':
			door = true
		case '[':
			door, isClosed = true, true
		case '=', '-':
			road = true
		case '/', '\\':
			climb = true
		case '{':
			portal = true
		case '*':
			directSun = true
		case '^':
			directSun = true
			if !p.trollMode {
				p.logger.Info("enabling troll exit mapping")
			}
			p.trollMode = true
		case ' ':
			reset()
		}
		if c < 'a' || c > 'z' {
			continue
		}
		j := i
		for j < len(rest) && rest[j] >= 'a' && rest[j] <= 'z' {
			j++
		}
		word := rest[i:j]
		i = j - 1
		dir, ok := mapdata.ParseDirection(word)
		if !ok || len(word) == 1 {
			continue
		}
		bits := parseevent.ExitBitExit
		if climb {
			bits |= parseevent.ExitBitClimb
		}
		if door {
			bits |= parseevent.ExitBitDoor
			closed[dir] = isClosed
		}
		if road {
			bits |= parseevent.ExitBitRoad
		}
		if directSun {
			connected = connected.WithLight(dir, parseevent.LightDirectSun)
		}
		exits = exits.Add(dir, bits)
	}

	if portal {
		return exits, connected
	}
	exits = exits.WithValid()
	connected = connected.WithValid()
	if p.trollMode {
		connected = connected.WithTrollMode()
	}
	if connected.HasAnyDirectSunlight() || p.trollMode {
		for _, d := range mapdata.AllExits {
			if exits.Get(d)&parseevent.ExitBitExit == 0 || closed[d] || connected.HasDirectSunlight(d) {
				continue
			}
			connected = connected.WithLight(d, parseevent.LightIndirectSun)
		}
	}
	return exits, connected
}
