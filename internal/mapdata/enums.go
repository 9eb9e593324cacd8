package mapdata

import "github.com/MUME/MMapper-sub000/internal/flags"

// TerrainType is the dominant terrain of a room. Values are persisted as-is.
type TerrainType uint8

const (
	TerrainUndefined TerrainType = iota
	TerrainIndoors
	TerrainCity
	TerrainField
	TerrainForest
	TerrainHills
	TerrainMountains
	TerrainShallow
	TerrainWater
	TerrainRapids
	TerrainUnderwater
	TerrainRoad
	TerrainBrush
	TerrainTunnel
	TerrainCavern
	TerrainDeathtrap
	numTerrainTypes
)

// NumTerrainTypes is the number of defined terrain types.
const NumTerrainTypes = int(numTerrainTypes)

var terrainNames = [...]string{
	"undefined", "indoors", "city", "field", "forest", "hills", "mountains",
	"shallow", "water", "rapids", "underwater", "road", "brush", "tunnel",
	"cavern", "deathtrap",
}

func (t TerrainType) String() string { return enumName(terrainNames[:], uint8(t)) }

// ParseTerrainType maps a terrain name back to its value.
func ParseTerrainType(s string) (TerrainType, bool) {
	v, ok := enumLookup(terrainNames[:], s)
	return TerrainType(v), ok
}

// LightType records whether a room is lit.
type LightType uint8

const (
	LightUndefined LightType = iota
	LightDark
	LightLit
	numLightTypes
)

var lightNames = [...]string{"undefined", "dark", "lit"}

func (l LightType) String() string { return enumName(lightNames[:], uint8(l)) }

// SundeathType records whether sunlight reaches a room.
type SundeathType uint8

const (
	SundeathUndefined SundeathType = iota
	SundeathSundeath
	SundeathNoSundeath
	numSundeathTypes
)

var sundeathNames = [...]string{"undefined", "sundeath", "no_sundeath"}

func (s SundeathType) String() string { return enumName(sundeathNames[:], uint8(s)) }

// PortableType records whether portals may be used from a room.
type PortableType uint8

const (
	PortableUndefined PortableType = iota
	PortablePortable
	PortableNotPortable
	numPortableTypes
)

var portableNames = [...]string{"undefined", "portable", "not_portable"}

func (p PortableType) String() string { return enumName(portableNames[:], uint8(p)) }

// RidableType records whether mounts may enter a room.
type RidableType uint8

const (
	RidableUndefined RidableType = iota
	RidableRidable
	RidableNotRidable
	numRidableTypes
)

var ridableNames = [...]string{"undefined", "ridable", "not_ridable"}

func (r RidableType) String() string { return enumName(ridableNames[:], uint8(r)) }

// AlignType is the moral alignment of a room.
type AlignType uint8

const (
	AlignUndefined AlignType = iota
	AlignGood
	AlignNeutral
	AlignEvil
	numAlignTypes
)

var alignNames = [...]string{"undefined", "good", "neutral", "evil"}

func (a AlignType) String() string { return enumName(alignNames[:], uint8(a)) }

// MobFlag marks notable inhabitants of a room.
type MobFlag uint8

const (
	MobRent MobFlag = iota
	MobShop
	MobWeaponShop
	MobArmourShop
	MobFoodShop
	MobPetShop
	MobGuild
	MobScoutGuild
	MobMageGuild
	MobClericGuild
	MobWarriorGuild
	MobRangerGuild
	MobAggressive
	MobQuest
	MobPassive
	MobElite
	MobSuper
	numMobFlags
)

var mobNames = [...]string{
	"rent", "shop", "weapon_shop", "armour_shop", "food_shop", "pet_shop",
	"guild", "scout_guild", "mage_guild", "cleric_guild", "warrior_guild",
	"ranger_guild", "aggressive_mob", "quest_mob", "passive_mob", "elite_mob",
	"super_mob",
}

func (MobFlag) Cardinality() int { return int(numMobFlags) }
func (m MobFlag) String() string { return enumName(mobNames[:], uint8(m)) }

// MobFlags is the set of mob flags of a room.
type MobFlags = flags.Set[MobFlag]

// LoadFlag marks notable items or services in a room.
type LoadFlag uint8

const (
	LoadTreasure LoadFlag = iota
	LoadArmour
	LoadWeapon
	LoadWater
	LoadFood
	LoadHerb
	LoadKey
	LoadMule
	LoadHorse
	LoadPackHorse
	LoadTrainedHorse
	LoadRohirrim
	LoadWarg
	LoadBoat
	LoadAttention
	LoadTower
	LoadClock
	LoadMail
	LoadStable
	LoadWhiteWord
	LoadDarkWord
	LoadEquipment
	LoadCoach
	LoadFerry
	numLoadFlags
)

var loadNames = [...]string{
	"treasure", "armour", "weapon", "water", "food", "herb", "key", "mule",
	"horse", "pack_horse", "trained_horse", "rohirrim", "warg", "boat",
	"attention", "tower", "clock", "mail", "stable", "white_word", "dark_word",
	"equipment", "coach", "ferry",
}

func (LoadFlag) Cardinality() int { return int(numLoadFlags) }
func (l LoadFlag) String() string { return enumName(loadNames[:], uint8(l)) }

// LoadFlags is the set of load flags of a room.
type LoadFlags = flags.Set[LoadFlag]

// ExitFlag describes a property of an exit.
type ExitFlag uint8

const (
	ExitExit ExitFlag = iota
	ExitDoor
	ExitRoad
	ExitClimb
	ExitRandom
	ExitSpecial
	ExitNoMatch
	ExitFlow
	ExitNoFlee
	ExitDamage
	ExitFall
	ExitGuarded
	numExitFlags
)

var exitFlagNames = [...]string{
	"exit", "door", "road", "climb", "random", "special", "no_match", "flow",
	"no_flee", "damage", "fall", "guarded",
}

func (ExitFlag) Cardinality() int { return int(numExitFlags) }
func (f ExitFlag) String() string { return enumName(exitFlagNames[:], uint8(f)) }

// ExitFlags is the set of exit flags of an exit.
type ExitFlags = flags.Set[ExitFlag]

// DoorFlag describes a property of a door.
type DoorFlag uint8

const (
	DoorHidden DoorFlag = iota
	DoorNeedKey
	DoorNoBlock
	DoorNoBreak
	DoorNoPick
	DoorDelayed
	DoorCallable
	DoorKnockable
	DoorMagic
	DoorAction
	DoorNoBash
	numDoorFlags
)

var doorFlagNames = [...]string{
	"hidden", "need_key", "no_block", "no_break", "no_pick", "delayed",
	"callable", "knockable", "magic", "action", "no_bash",
}

func (DoorFlag) Cardinality() int { return int(numDoorFlags) }
func (f DoorFlag) String() string { return enumName(doorFlagNames[:], uint8(f)) }

// DoorFlags is the set of door flags of an exit.
type DoorFlags = flags.Set[DoorFlag]

// ParseFlagName looks up a flag by its name among the defined values of E.
func ParseFlagName[E flags.Enum](name string) (E, bool) {
	var zero E
	for i := 0; i < zero.Cardinality(); i++ {
		if E(i).String() == name {
			return E(i), true
		}
	}
	return zero, false
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "invalid"
}

func enumLookup(names []string, s string) (uint8, bool) {
	for i, n := range names {
		if n == s {
			return uint8(i), true
		}
	}
	return 0, false
}
