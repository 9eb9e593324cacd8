package mapdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MUME/MMapper-sub000/internal/flags"
)

// yamlMapFile is the top-level YAML structure for map files.
type yamlMapFile struct {
	Map yamlMap `yaml:"map"`
}

// yamlMap is the YAML representation of a map.
type yamlMap struct {
	Name  string     `yaml:"name"`
	Rooms []yamlRoom `yaml:"rooms"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          uint32     `yaml:"id"`
	ServerID    uint32     `yaml:"server_id,omitempty"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Contents    string     `yaml:"contents,omitempty"`
	Note        string     `yaml:"note,omitempty"`
	Terrain     string     `yaml:"terrain,omitempty"`
	Light       string     `yaml:"light,omitempty"`
	Sundeath    string     `yaml:"sundeath,omitempty"`
	Portable    string     `yaml:"portable,omitempty"`
	Ridable     string     `yaml:"ridable,omitempty"`
	Align       string     `yaml:"align,omitempty"`
	Mobs        []string   `yaml:"mobs,omitempty"`
	Loads       []string   `yaml:"loads,omitempty"`
	Position    [3]int32   `yaml:"position,flow"`
	UpToDate    bool       `yaml:"up_to_date,omitempty"`
	Exits       []yamlExit `yaml:"exits,omitempty"`
}

// yamlExit is the YAML representation of an exit.
type yamlExit struct {
	Direction string   `yaml:"direction"`
	Targets   []uint32 `yaml:"targets,omitempty,flow"`
	Flags     []string `yaml:"flags,omitempty,flow"`
	Door      string   `yaml:"door,omitempty"`
	DoorFlags []string `yaml:"door_flags,omitempty,flow"`
}

// LoadSnapshotFromFile reads a YAML map file.
//
// Precondition: path must point to a YAML map file.
// Postcondition: Returns the decoded snapshot and map name, or a non-nil error.
func LoadSnapshotFromFile(path string) (Snapshot, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, "", fmt.Errorf("reading map file %s: %w", path, err)
	}
	return LoadSnapshotFromBytes(data)
}

// LoadSnapshotFromBytes parses a map from YAML bytes.
//
// Postcondition: Returns the decoded snapshot and map name, or a non-nil error
// naming the first unknown direction, enum or flag.
func LoadSnapshotFromBytes(data []byte) (Snapshot, string, error) {
	var file yamlMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Snapshot{}, "", fmt.Errorf("parsing map YAML: %w", err)
	}
	snap := Snapshot{Rooms: make([]*Room, 0, len(file.Map.Rooms))}
	for _, yr := range file.Map.Rooms {
		r, err := convertYAMLRoom(yr)
		if err != nil {
			return Snapshot{}, "", fmt.Errorf("room %d: %w", yr.ID, err)
		}
		snap.Rooms = append(snap.Rooms, r)
	}
	return snap, file.Map.Name, nil
}

// MarshalSnapshot encodes snap as a YAML map file.
func MarshalSnapshot(name string, snap Snapshot) ([]byte, error) {
	file := yamlMapFile{Map: yamlMap{Name: name, Rooms: make([]yamlRoom, 0, len(snap.Rooms))}}
	for _, r := range snap.Rooms {
		file.Map.Rooms = append(file.Map.Rooms, toYAMLRoom(r))
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encoding map YAML: %w", err)
	}
	return data, nil
}

// WriteSnapshotFile writes snap to path, replacing it atomically.
func WriteSnapshotFile(path, name string, snap Snapshot) error {
	data, err := MarshalSnapshot(name, snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing map file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing map file %s: %w", path, err)
	}
	return nil
}

func convertYAMLRoom(yr yamlRoom) (*Room, error) {
	r := &Room{
		ID:          RoomID(yr.ID),
		ServerID:    ServerRoomID(yr.ServerID),
		Name:        yr.Name,
		StaticDesc:  yr.Description,
		DynamicDesc: yr.Contents,
		Note:        yr.Note,
		Position:    Coordinate{X: yr.Position[0], Y: yr.Position[1], Z: yr.Position[2]},
		UpToDate:    yr.UpToDate,
	}
	enums := []struct {
		names []string
		value string
		field string
		set   func(uint8)
	}{
		{terrainNames[:], yr.Terrain, "terrain", func(v uint8) { r.Terrain = TerrainType(v) }},
		{lightNames[:], yr.Light, "light", func(v uint8) { r.Light = LightType(v) }},
		{sundeathNames[:], yr.Sundeath, "sundeath", func(v uint8) { r.Sundeath = SundeathType(v) }},
		{portableNames[:], yr.Portable, "portable", func(v uint8) { r.Portable = PortableType(v) }},
		{ridableNames[:], yr.Ridable, "ridable", func(v uint8) { r.Ridable = RidableType(v) }},
		{alignNames[:], yr.Align, "align", func(v uint8) { r.Align = AlignType(v) }},
	}
	for _, en := range enums {
		if en.value == "" {
			continue
		}
		v, ok := enumLookup(en.names, en.value)
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", en.field, en.value)
		}
		en.set(v)
	}
	var err error
	if r.MobFlags, err = parseFlagList[MobFlag](yr.Mobs); err != nil {
		return nil, err
	}
	if r.LoadFlags, err = parseFlagList[LoadFlag](yr.Loads); err != nil {
		return nil, err
	}
	for _, ye := range yr.Exits {
		dir, ok := ParseDirection(ye.Direction)
		if !ok {
			return nil, fmt.Errorf("unknown exit direction %q", ye.Direction)
		}
		e := r.Exit(dir)
		if e.ExitFlags, err = parseFlagList[ExitFlag](ye.Flags); err != nil {
			return nil, err
		}
		if e.DoorFlags, err = parseFlagList[DoorFlag](ye.DoorFlags); err != nil {
			return nil, err
		}
		e.DoorName = ye.Door
		for _, t := range ye.Targets {
			e.AddOut(RoomID(t))
		}
	}
	return r, nil
}

func toYAMLRoom(r *Room) yamlRoom {
	yr := yamlRoom{
		ID:          uint32(r.ID),
		ServerID:    uint32(r.ServerID),
		Name:        r.Name,
		Description: r.StaticDesc,
		Contents:    r.DynamicDesc,
		Note:        r.Note,
		Terrain:     namedOrEmpty(r.Terrain.String(), r.Terrain == TerrainUndefined),
		Light:       namedOrEmpty(r.Light.String(), r.Light == LightUndefined),
		Sundeath:    namedOrEmpty(r.Sundeath.String(), r.Sundeath == SundeathUndefined),
		Portable:    namedOrEmpty(r.Portable.String(), r.Portable == PortableUndefined),
		Ridable:     namedOrEmpty(r.Ridable.String(), r.Ridable == RidableUndefined),
		Align:       namedOrEmpty(r.Align.String(), r.Align == AlignUndefined),
		Mobs:        flagNames(r.MobFlags),
		Loads:       flagNames(r.LoadFlags),
		Position:    [3]int32{r.Position.X, r.Position.Y, r.Position.Z},
		UpToDate:    r.UpToDate,
	}
	for _, d := range AllExits {
		e := r.Exit(d)
		if e.ExitFlags.IsEmpty() && e.DoorFlags.IsEmpty() && len(e.Outgoing()) == 0 && e.DoorName == "" {
			continue
		}
		ye := yamlExit{
			Direction: d.String(),
			Flags:     flagNames(e.ExitFlags),
			Door:      e.DoorName,
			DoorFlags: flagNames(e.DoorFlags),
		}
		for _, t := range e.Outgoing() {
			ye.Targets = append(ye.Targets, uint32(t))
		}
		yr.Exits = append(yr.Exits, ye)
	}
	return yr
}

func parseFlagList[E flags.Enum](names []string) (flags.Set[E], error) {
	var s flags.Set[E]
	for _, n := range names {
		v, ok := ParseFlagName[E](n)
		if !ok {
			var zero E
			return 0, fmt.Errorf("unknown %T flag %q", zero, n)
		}
		s = s.With(v)
	}
	return s, nil
}

func flagNames[E flags.Enum](s flags.Set[E]) []string {
	if s.IsEmpty() {
		return nil
	}
	out := make([]string, 0, s.Len())
	for _, v := range s.Members() {
		out = append(out, v.String())
	}
	return out
}

func namedOrEmpty(name string, undefined bool) string {
	if undefined {
		return ""
	}
	return name
}
