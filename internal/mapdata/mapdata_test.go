package mapdata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func newTestMap(t *testing.T) *MapData {
	t.Helper()
	return New(zaptest.NewLogger(t))
}

func createRoom(t *testing.T, m *MapData, name string, pos Coordinate) RoomID {
	t.Helper()
	var id RoomID
	err := m.Execute(ActionFunc(func(tx *Tx) error {
		r := NewRoom(pos)
		r.Name = name
		id = tx.Create(r)
		return nil
	}))
	require.NoError(t, err)
	return id
}

func TestCoordinate_Arithmetic(t *testing.T) {
	a := Coordinate{X: 1, Y: 2, Z: 3}
	b := Coordinate{X: -1, Y: 5, Z: 0}
	assert.Equal(t, Coordinate{X: 0, Y: 7, Z: 3}, a.Add(b))
	assert.Equal(t, Coordinate{X: 2, Y: -3, Z: 3}, a.Sub(b))
	assert.Equal(t, Coordinate{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.Equal(t, 2+3+3, a.Distance(b))
	assert.True(t, Coordinate{}.IsNull())
	assert.False(t, a.IsNull())
}

func TestDirection_OffsetsAndOpposites(t *testing.T) {
	assert.Equal(t, Coordinate{Y: -1}, North.Offset())
	assert.Equal(t, Coordinate{Y: 1}, South.Offset())
	assert.Equal(t, Coordinate{X: 1}, East.Offset())
	assert.Equal(t, Coordinate{X: -1}, West.Offset())
	assert.Equal(t, Coordinate{Z: 1}, Up.Offset())
	assert.Equal(t, Coordinate{Z: -1}, Down.Offset())
	assert.True(t, Unknown.Offset().IsNull())
	for _, d := range AllExits {
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.True(t, d.Offset().Add(d.Opposite().Offset()).IsNull())
	}
}

func TestRoom_HasExactlySixExits(t *testing.T) {
	r := NewRoom(Coordinate{})
	assert.Len(t, r.Exits, 6)
}

func TestExit_AddOutSetsExitFlag(t *testing.T) {
	var e Exit
	assert.False(t, e.IsExit())
	e.AddOut(4)
	e.AddOut(2)
	e.AddOut(4)
	assert.True(t, e.IsExit())
	assert.Equal(t, RoomIDSet{2, 4}, e.Outgoing())
	assert.True(t, e.ContainsOut(2))
}

func TestExecute_CreateAndLink(t *testing.T) {
	m := newTestMap(t)
	var notified []ChangeSet
	m.Subscribe(func(cs ChangeSet) { notified = append(notified, cs) })

	a := createRoom(t, m, "Hall", Coordinate{})
	b := createRoom(t, m, "Yard", Coordinate{Y: -1})
	require.NoError(t, m.Execute(AddExit{From: a, To: b, Dir: North, TwoWay: true}))

	ra, ok := m.Room(a)
	require.True(t, ok)
	rb, ok := m.Room(b)
	require.True(t, ok)
	assert.True(t, ra.Exit(North).ContainsOut(b))
	assert.True(t, rb.Exit(South).ContainsOut(a))
	assert.True(t, rb.Exit(South).ContainsIn(a))
	assert.True(t, ra.Exit(North).ContainsIn(b))

	require.Len(t, notified, 3)
	assert.Equal(t, RoomIDSet{a, b}, notified[2].Updated)
}

func TestExecute_ListenerMayReadMap(t *testing.T) {
	m := newTestMap(t)
	var seen []string
	m.Subscribe(func(cs ChangeSet) {
		for _, id := range cs.Added {
			if r, ok := m.Room(id); ok {
				seen = append(seen, r.Name)
			}
		}
	})
	createRoom(t, m, "Porch", Coordinate{})
	assert.Equal(t, []string{"Porch"}, seen)
}

func TestExecute_NearestFreePlacement(t *testing.T) {
	m := newTestMap(t)
	createRoom(t, m, "A", Coordinate{})
	id := createRoom(t, m, "B", Coordinate{})
	r, ok := m.Room(id)
	require.True(t, ok)
	assert.Equal(t, 1, r.Position.Distance(Coordinate{}))
	assert.Equal(t, 2, m.RoomCount())
}

func TestExecute_RemoveRoomUnlinksNeighbours(t *testing.T) {
	m := newTestMap(t)
	a := createRoom(t, m, "A", Coordinate{})
	b := createRoom(t, m, "B", Coordinate{X: 1})
	require.NoError(t, m.Execute(AddExit{From: a, To: b, Dir: East, TwoWay: true}))

	require.NoError(t, m.Execute(RemoveRoom{ID: b}))
	_, ok := m.Room(b)
	assert.False(t, ok)
	ra, _ := m.Room(a)
	assert.Empty(t, ra.Exit(East).Outgoing())
	assert.Empty(t, ra.Exit(East).Incoming())
	_, ok = m.RoomAt(Coordinate{X: 1})
	assert.False(t, ok)
}

func TestExecute_RollbackOnError(t *testing.T) {
	m := newTestMap(t)
	a := createRoom(t, m, "A", Coordinate{})
	calls := 0
	m.Subscribe(func(ChangeSet) { calls++ })

	err := m.Execute(Group{
		ActionFunc(func(tx *Tx) error {
			tx.Create(NewRoom(Coordinate{X: 5}))
			return tx.Update(a, func(r *Room) { r.Name = "Renamed" })
		}),
		RemoveRoom{ID: 999},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRoomNotFound))

	assert.Equal(t, 1, m.RoomCount())
	ra, _ := m.Room(a)
	assert.Equal(t, "A", ra.Name)
	assert.Len(t, m.MatchingRooms(Query{Name: "A"}), 1)
	assert.Empty(t, m.MatchingRooms(Query{Name: "Renamed"}))
	_, ok := m.RoomAt(Coordinate{X: 5})
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestExecute_BlockedWhileBulk(t *testing.T) {
	m := newTestMap(t)
	release, err := m.Block(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Blocked())

	err = m.Execute(ActionFunc(func(tx *Tx) error {
		tx.Create(NewRoom(Coordinate{}))
		return nil
	}))
	assert.ErrorIs(t, err, ErrMapBlocked)
	assert.Zero(t, m.RoomCount())

	release()
	release()
	assert.False(t, m.Blocked())
	createRoom(t, m, "A", Coordinate{})
}

func TestBlock_RespectsContext(t *testing.T) {
	m := newTestMap(t)
	release, err := m.Block(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Block(ctx)
	assert.Error(t, err)
}

func TestMatchingRooms(t *testing.T) {
	m := newTestMap(t)
	a := createRoom(t, m, "Road", Coordinate{})
	createRoom(t, m, "Road", Coordinate{X: 1})
	createRoom(t, m, "Field", Coordinate{X: 2})
	require.NoError(t, m.Execute(ActionFunc(func(tx *Tx) error {
		return tx.Update(a, func(r *Room) {
			r.StaticDesc = "A dusty road."
			r.Terrain = TerrainRoad
		})
	})))

	assert.Len(t, m.MatchingRooms(Query{Name: "Road"}), 2)
	got := m.MatchingRooms(Query{Name: "Road", Desc: "A dusty road."})
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0].ID)
	assert.Len(t, m.MatchingRooms(Query{Terrain: TerrainField}), 2)
	assert.Len(t, m.MatchingRooms(Query{}), 3)
}

func TestBounds(t *testing.T) {
	m := newTestMap(t)
	_, _, ok := m.Bounds()
	assert.False(t, ok)
	createRoom(t, m, "A", Coordinate{X: -2, Y: 3})
	createRoom(t, m, "B", Coordinate{X: 4, Y: -1, Z: 2})
	lo, hi, ok := m.Bounds()
	require.True(t, ok)
	assert.Equal(t, Coordinate{X: -2, Y: -1}, lo)
	assert.Equal(t, Coordinate{X: 4, Y: 3, Z: 2}, hi)
}

const testMapYAML = `
map:
  name: test
  rooms:
    - id: 0
      name: "Main Hall"
      description: "A large hall."
      terrain: indoors
      light: lit
      mobs: [rent, shop]
      position: [0, 0, 0]
      exits:
        - direction: north
          targets: [1]
          flags: [door]
          door: gate
          door_flags: [need_key, no_bash]
    - id: 1
      name: "Courtyard"
      terrain: city
      position: [0, -1, 0]
      exits:
        - direction: south
          targets: [0]
        - direction: east
          targets: [42]
`

func TestLoadSnapshot_YAML(t *testing.T) {
	snap, name, err := LoadSnapshotFromBytes([]byte(testMapYAML))
	require.NoError(t, err)
	assert.Equal(t, "test", name)
	require.Len(t, snap.Rooms, 2)

	hall := snap.Rooms[0]
	assert.Equal(t, TerrainIndoors, hall.Terrain)
	assert.Equal(t, LightLit, hall.Light)
	assert.True(t, hall.MobFlags.Contains(MobShop))
	north := hall.Exit(North)
	assert.True(t, north.IsDoor())
	assert.True(t, north.IsExit())
	assert.Equal(t, "gate", north.DoorName)
	assert.True(t, north.DoorFlags.Contains(DoorNoBash))

	m := newTestMap(t)
	require.NoError(t, m.Load(context.Background(), snap))
	assert.Equal(t, 2, m.RoomCount())
	court, ok := m.Room(1)
	require.True(t, ok)
	assert.True(t, court.Exit(South).ContainsIn(0))
	assert.Empty(t, court.Exit(East).Outgoing(), "dangling exit must be dropped")
}

func TestLoadSnapshot_UnknownFlag(t *testing.T) {
	_, _, err := LoadSnapshotFromBytes([]byte(`
map:
  rooms:
    - id: 0
      name: X
      mobs: [dragon]
`))
	assert.Error(t, err)
}

func TestLoad_ClampsOutOfRangeEnums(t *testing.T) {
	r := NewRoom(Coordinate{})
	r.ID = 0
	r.Terrain = TerrainType(200)
	m := newTestMap(t)
	require.NoError(t, m.Load(context.Background(), Snapshot{Rooms: []*Room{r}}))
	got, ok := m.Room(0)
	require.True(t, ok)
	assert.Equal(t, TerrainUndefined, got.Terrain)
}

func TestLoad_DuplicateIDLeavesMapIntact(t *testing.T) {
	snap, _, err := LoadSnapshotFromBytes([]byte(testMapYAML))
	require.NoError(t, err)
	m := newTestMap(t)
	require.NoError(t, m.Load(context.Background(), snap))
	before := m.Rooms()

	var notified int
	m.Subscribe(func(ChangeSet) { notified++ })

	a := NewRoom(Coordinate{X: 7})
	a.ID = 3
	a.Name = "Attic"
	b := NewRoom(Coordinate{X: 8})
	b.ID = 3
	b.Name = "Cellar"
	err = m.Load(context.Background(), Snapshot{Rooms: []*Room{a, b}})
	require.Error(t, err)

	assert.Equal(t, 2, m.RoomCount())
	assert.Equal(t, before, m.Rooms())
	hall, ok := m.Room(0)
	require.True(t, ok)
	named := m.MatchingRooms(Query{Name: hall.Name})
	require.Len(t, named, 1)
	assert.Equal(t, RoomID(0), named[0].ID)
	got, ok := m.RoomAt(hall.Position)
	require.True(t, ok)
	assert.Equal(t, RoomID(0), got.ID)
	assert.Zero(t, notified)
	assert.False(t, m.Blocked())
}

func TestLoad_RejectsHugeRoomID(t *testing.T) {
	m := newTestMap(t)
	keep := createRoom(t, m, "Keep", Coordinate{})

	r := NewRoom(Coordinate{})
	r.ID = RoomID(4294967294)
	err := m.Load(context.Background(), Snapshot{Rooms: []*Room{r}})
	require.ErrorIs(t, err, ErrRoomIDOutOfRange)
	assert.Equal(t, 1, m.RoomCount())
	_, ok := m.Room(keep)
	assert.True(t, ok)
}

func TestLoad_AcceptsSparseIDsWithinSlack(t *testing.T) {
	r := NewRoom(Coordinate{})
	r.ID = RoomID(60000)
	m := newTestMap(t)
	require.NoError(t, m.Load(context.Background(), Snapshot{Rooms: []*Room{r}}))
	_, ok := m.Room(60000)
	assert.True(t, ok)
}

func TestSnapshotFile_RoundTrip(t *testing.T) {
	snap, _, err := LoadSnapshotFromBytes([]byte(testMapYAML))
	require.NoError(t, err)
	m := newTestMap(t)
	require.NoError(t, m.Load(context.Background(), snap))

	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, WriteSnapshotFile(path, "test", m.Export()))
	again, name, err := LoadSnapshotFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", name)

	m2 := newTestMap(t)
	require.NoError(t, m2.Load(context.Background(), again))
	assert.Equal(t, m.Rooms(), m2.Rooms())
}

func TestExport_SkipsTemporaryRooms(t *testing.T) {
	m := newTestMap(t)
	a := createRoom(t, m, "A", Coordinate{})
	var tmp RoomID
	require.NoError(t, m.Execute(ActionFunc(func(tx *Tx) error {
		r := NewRoom(Coordinate{X: 1})
		r.Temporary = true
		tmp = tx.Create(r)
		return tx.Link(a, East, tmp)
	})))
	snap := m.Export()
	require.Len(t, snap.Rooms, 1)
	assert.Empty(t, snap.Rooms[0].Exit(East).Outgoing())
}

func TestPropertyLinksStayConsistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := New(zaptest.NewLogger(t))
		n := rapid.IntRange(1, 8).Draw(rt, "rooms")
		require.NoError(rt, m.Execute(ActionFunc(func(tx *Tx) error {
			for i := 0; i < n; i++ {
				tx.Create(NewRoom(Coordinate{X: int32(i)}))
			}
			return nil
		})))
		ops := rapid.IntRange(0, 30).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			from := RoomID(rapid.IntRange(0, n-1).Draw(rt, "from"))
			to := RoomID(rapid.IntRange(0, n-1).Draw(rt, "to"))
			dir := AllExits[rapid.IntRange(0, NumExits-1).Draw(rt, "dir")]
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				_ = m.Execute(AddExit{From: from, To: to, Dir: dir, TwoWay: rapid.Bool().Draw(rt, "twoway")})
			case 1:
				_ = m.Execute(RemoveExit{From: from, To: to, Dir: dir})
			case 2:
				_ = m.Execute(RemoveRoom{ID: from})
			}
		}
		for _, r := range m.Rooms() {
			for _, d := range AllExits {
				e := r.Exit(d)
				if len(e.Outgoing()) > 0 && !e.IsExit() {
					rt.Fatalf("room %d exit %s has targets but no exit flag", r.ID, d)
				}
				for _, t := range e.Outgoing() {
					target, ok := m.Room(t)
					if !ok {
						rt.Fatalf("room %d exit %s points at missing room %d", r.ID, d, t)
					}
					if !target.Exit(d.Opposite()).ContainsIn(r.ID) {
						rt.Fatalf("room %d exit %s: target %d lacks incoming link", r.ID, d, t)
					}
				}
			}
		}
	})
}
