package parseevent

import (
	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// ExitFlags packs the per-direction exit observations of one room display:
// four bits per direction (exit, door, road, climb) and a validity bit.
type ExitFlags uint32

// Per-direction exit bits.
const (
	ExitBitExit  ExitFlags = 1 << 0
	ExitBitDoor  ExitFlags = 1 << 1
	ExitBitRoad  ExitFlags = 1 << 2
	ExitBitClimb ExitFlags = 1 << 3
)

const (
	exitBitsMask  ExitFlags = 0b1111
	exitsValid    ExitFlags = 1 << 30
	exitsFullMask ExitFlags = 0x40FFFFFF
)

func exitShift(d mapdata.ExitDirection) uint { return uint(d) * 4 }

// Get returns the bits observed for direction d.
func (f ExitFlags) Get(d mapdata.ExitDirection) ExitFlags {
	if !d.IsNESWUD() {
		return 0
	}
	return (f >> exitShift(d)) & exitBitsMask
}

// Set returns f with the bits for direction d replaced by bits.
func (f ExitFlags) Set(d mapdata.ExitDirection, bits ExitFlags) ExitFlags {
	if !d.IsNESWUD() {
		return f
	}
	shift := exitShift(d)
	return (f &^ (exitBitsMask << shift)) | (bits&exitBitsMask)<<shift
}

// Add returns f with bits added for direction d.
func (f ExitFlags) Add(d mapdata.ExitDirection, bits ExitFlags) ExitFlags {
	return f.Set(d, f.Get(d)|bits)
}

// IsValid reports whether the exits line was actually observed.
func (f ExitFlags) IsValid() bool { return f&exitsValid != 0 }

// WithValid returns f marked as observed.
func (f ExitFlags) WithValid() ExitFlags { return f | exitsValid }

// WithoutValid returns f marked as not observed.
func (f ExitFlags) WithoutValid() ExitFlags { return f &^ exitsValid }

// Masked drops undefined bits.
func (f ExitFlags) Masked() ExitFlags { return f & exitsFullMask }

// MapFlags converts the observation for d into map exit flags.
func (f ExitFlags) MapFlags(d mapdata.ExitDirection) mapdata.ExitFlags {
	bits := f.Get(d)
	var out mapdata.ExitFlags
	if bits&ExitBitExit != 0 {
		out = out.With(mapdata.ExitExit)
	}
	if bits&ExitBitDoor != 0 {
		out = out.With(mapdata.ExitDoor)
	}
	if bits&ExitBitRoad != 0 {
		out = out.With(mapdata.ExitRoad)
	}
	if bits&ExitBitClimb != 0 {
		out = out.With(mapdata.ExitClimb)
	}
	return out
}

// ExitBits returns the observable part of a map exit as unshifted exit bits.
func ExitBits(e *mapdata.Exit) ExitFlags {
	var bits ExitFlags
	if e.IsExit() {
		bits |= ExitBitExit
	}
	if e.IsDoor() {
		bits |= ExitBitDoor
	}
	if e.IsRoad() {
		bits |= ExitBitRoad
	}
	if e.IsClimb() {
		bits |= ExitBitClimb
	}
	return bits
}

// PromptFlags packs the terrain and light observed in the prompt.
type PromptFlags uint8

const (
	promptTerrainMask PromptFlags = 0b1111
	promptLit         PromptFlags = 1 << 4
	promptValid       PromptFlags = 1 << 6
)

// NewPromptFlags builds prompt flags for a terrain.
func NewPromptFlags(t mapdata.TerrainType) PromptFlags {
	return PromptFlags(t) & promptTerrainMask
}

// Terrain returns the observed terrain.
func (p PromptFlags) Terrain() mapdata.TerrainType {
	return mapdata.TerrainType(p & promptTerrainMask)
}

// WithTerrain returns p with the terrain replaced.
func (p PromptFlags) WithTerrain(t mapdata.TerrainType) PromptFlags {
	return (p &^ promptTerrainMask) | NewPromptFlags(t)
}

// IsLit reports whether the prompt showed the room as lit.
func (p PromptFlags) IsLit() bool { return p&promptLit != 0 }

// WithLit returns p marked lit.
func (p PromptFlags) WithLit() PromptFlags { return p | promptLit }

// IsValid reports whether a prompt was observed.
func (p PromptFlags) IsValid() bool { return p&promptValid != 0 }

// WithValid returns p marked observed.
func (p PromptFlags) WithValid() PromptFlags { return p | promptValid }

// DirectionalLight describes the light of the room beyond an exit.
type DirectionalLight uint8

const (
	LightNone DirectionalLight = iota
	LightDirectSun
	LightIndirectSun
	LightBoth
)

// ConnectedRoomFlags packs the sunlight observed through each exit.
type ConnectedRoomFlags uint16

const (
	connectedMask        ConnectedRoomFlags = 0b11
	connectedValid       ConnectedRoomFlags = 1 << 14
	anyDirectSunlight    ConnectedRoomFlags = 0x555
	connectedTrollBitPos                    = 13
)

func connectedShift(d mapdata.ExitDirection) uint { return uint(d) * 2 }

// Light returns the light observed beyond direction d.
func (c ConnectedRoomFlags) Light(d mapdata.ExitDirection) DirectionalLight {
	if !d.IsNESWUD() {
		return LightNone
	}
	return DirectionalLight((c >> connectedShift(d)) & connectedMask)
}

// WithLight returns c with the light beyond direction d replaced.
func (c ConnectedRoomFlags) WithLight(d mapdata.ExitDirection, l DirectionalLight) ConnectedRoomFlags {
	if !d.IsNESWUD() {
		return c
	}
	shift := connectedShift(d)
	return (c &^ (connectedMask << shift)) | (ConnectedRoomFlags(l)&connectedMask)<<shift
}

// HasDirectSunlight reports whether direct sunlight was seen beyond d.
func (c ConnectedRoomFlags) HasDirectSunlight(d mapdata.ExitDirection) bool {
	return c.Light(d)&LightDirectSun != 0
}

// HasAnyDirectSunlight reports whether any neighbour was seen in direct sunlight.
func (c ConnectedRoomFlags) HasAnyDirectSunlight() bool { return c&anyDirectSunlight != 0 }

// IsValid reports whether the observation happened.
func (c ConnectedRoomFlags) IsValid() bool { return c&connectedValid != 0 }

// WithValid returns c marked observed.
func (c ConnectedRoomFlags) WithValid() ConnectedRoomFlags { return c | connectedValid }

// IsTrollMode reports whether the exits line carried troll-vision markers.
func (c ConnectedRoomFlags) IsTrollMode() bool { return c&(1<<connectedTrollBitPos) != 0 }

// WithTrollMode returns c marked as observed with troll vision.
func (c ConnectedRoomFlags) WithTrollMode() ConnectedRoomFlags { return c | 1<<connectedTrollBitPos }
