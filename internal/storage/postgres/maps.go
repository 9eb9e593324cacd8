package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/flags"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// ErrMapNameTaken is returned when creating a map under a name already in use.
var ErrMapNameTaken = errors.New("map name already taken")

// MapInfo describes a stored map.
type MapInfo struct {
	ID        uuid.UUID
	Name      string
	Rooms     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

var roomColumns = []string{
	"map_id", "id", "server_id", "name", "static_desc", "dynamic_desc", "note",
	"terrain", "light", "sundeath", "portable", "ridable", "align",
	"mob_flags", "load_flags", "x", "y", "z", "up_to_date",
}

var exitColumns = []string{
	"map_id", "room_id", "direction", "door_name", "exit_flags", "door_flags", "targets",
}

// MapRepository provides map persistence operations.
type MapRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMapRepository creates a MapRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; logger must be non-nil.
func NewMapRepository(db *pgxpool.Pool, logger *zap.Logger) *MapRepository {
	return &MapRepository{db: db, logger: logger.Named("postgres")}
}

// Create registers an empty map.
//
// Precondition: name must be non-empty.
// Postcondition: Returns the new map, or ErrMapNameTaken on duplicate.
func (r *MapRepository) Create(ctx context.Context, name string) (MapInfo, error) {
	info := MapInfo{ID: uuid.New(), Name: name}
	err := r.db.QueryRow(ctx, `
		INSERT INTO maps (id, name) VALUES ($1, $2)
		RETURNING created_at, updated_at`,
		info.ID, name,
	).Scan(&info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return MapInfo{}, ErrMapNameTaken
		}
		return MapInfo{}, fmt.Errorf("inserting map: %w", err)
	}
	return info, nil
}

// Get returns the map registered under name.
//
// Postcondition: Returns mapdata.ErrMapNotFound if no such map exists.
func (r *MapRepository) Get(ctx context.Context, name string) (MapInfo, error) {
	var info MapInfo
	err := r.db.QueryRow(ctx, `
		SELECT m.id, m.name, m.created_at, m.updated_at,
		       (SELECT COUNT(*) FROM rooms WHERE map_id = m.id)
		FROM maps m WHERE m.name = $1`,
		name,
	).Scan(&info.ID, &info.Name, &info.CreatedAt, &info.UpdatedAt, &info.Rooms)
	if errors.Is(err, pgx.ErrNoRows) {
		return MapInfo{}, fmt.Errorf("map %q: %w", name, mapdata.ErrMapNotFound)
	}
	if err != nil {
		return MapInfo{}, fmt.Errorf("querying map: %w", err)
	}
	return info, nil
}

// List returns every stored map ordered by name.
func (r *MapRepository) List(ctx context.Context) ([]MapInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.name, m.created_at, m.updated_at,
		       (SELECT COUNT(*) FROM rooms WHERE map_id = m.id)
		FROM maps m ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("listing maps: %w", err)
	}
	defer rows.Close()

	var out []MapInfo
	for rows.Next() {
		var info MapInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.UpdatedAt, &info.Rooms); err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a map with all its rooms.
//
// Postcondition: Returns mapdata.ErrMapNotFound if no such map exists.
func (r *MapRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maps WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting map: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("map %q: %w", name, mapdata.ErrMapNotFound)
	}
	return nil
}

// Save replaces the rooms of the named map with snap in one transaction,
// creating the map if needed.
//
// Postcondition: On success a following Load returns the same rooms and links.
func (r *MapRepository) Save(ctx context.Context, name string, snap mapdata.Snapshot) error {
	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO maps (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		uuid.New(), name,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upserting map: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM rooms WHERE map_id = $1`, id); err != nil {
		return fmt.Errorf("clearing rooms: %w", err)
	}

	roomRows := make([][]any, 0, len(snap.Rooms))
	var exitRows [][]any
	for _, room := range snap.Rooms {
		roomRows = append(roomRows, []any{
			id, int32(room.ID), int64(room.ServerID), room.Name, room.StaticDesc, room.DynamicDesc, room.Note,
			int16(room.Terrain), int16(room.Light), int16(room.Sundeath),
			int16(room.Portable), int16(room.Ridable), int16(room.Align),
			int64(room.MobFlags.Uint32()), int64(room.LoadFlags.Uint32()),
			room.Position.X, room.Position.Y, room.Position.Z, room.UpToDate,
		})
		for _, d := range mapdata.AllExits {
			e := room.Exit(d)
			if e.ExitFlags.IsEmpty() && e.DoorFlags.IsEmpty() && e.DoorName == "" && len(e.Outgoing()) == 0 {
				continue
			}
			targets := make([]int32, 0, len(e.Outgoing()))
			for _, t := range e.Outgoing() {
				targets = append(targets, int32(t))
			}
			exitRows = append(exitRows, []any{
				id, int32(room.ID), int16(d), e.DoorName,
				int64(e.ExitFlags.Uint32()), int64(e.DoorFlags.Uint32()), targets,
			})
		}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"rooms"}, roomColumns, pgx.CopyFromRows(roomRows)); err != nil {
		return fmt.Errorf("copying rooms: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"exits"}, exitColumns, pgx.CopyFromRows(exitRows)); err != nil {
		return fmt.Errorf("copying exits: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing map: %w", err)
	}

	r.logger.Info("map saved",
		zap.String("map", name),
		zap.Int("rooms", len(roomRows)),
		zap.Int("exits", len(exitRows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Load reads every room of the named map.
//
// Postcondition: Returns mapdata.ErrMapNotFound if no such map exists.
func (r *MapRepository) Load(ctx context.Context, name string) (mapdata.Snapshot, error) {
	info, err := r.Get(ctx, name)
	if err != nil {
		return mapdata.Snapshot{}, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, server_id, name, static_desc, dynamic_desc, note,
		       terrain, light, sundeath, portable, ridable, align,
		       mob_flags, load_flags, x, y, z, up_to_date
		FROM rooms WHERE map_id = $1 ORDER BY id`,
		info.ID,
	)
	if err != nil {
		return mapdata.Snapshot{}, fmt.Errorf("querying rooms: %w", err)
	}
	byID := make(map[mapdata.RoomID]*mapdata.Room, info.Rooms)
	snap := mapdata.Snapshot{Rooms: make([]*mapdata.Room, 0, info.Rooms)}
	for rows.Next() {
		var (
			id, x, y, z                                        int32
			serverID, mobs, loads                              int64
			terrain, light, sundeath, portable, ridable, align int16
		)
		room := mapdata.NewRoom(mapdata.Coordinate{})
		if err := rows.Scan(&id, &serverID, &room.Name, &room.StaticDesc, &room.DynamicDesc, &room.Note,
			&terrain, &light, &sundeath, &portable, &ridable, &align,
			&mobs, &loads, &x, &y, &z, &room.UpToDate); err != nil {
			rows.Close()
			return mapdata.Snapshot{}, fmt.Errorf("scanning room: %w", err)
		}
		room.ID = mapdata.RoomID(id)
		room.ServerID = mapdata.ServerRoomID(serverID)
		room.Terrain = mapdata.TerrainType(terrain)
		room.Light = mapdata.LightType(light)
		room.Sundeath = mapdata.SundeathType(sundeath)
		room.Portable = mapdata.PortableType(portable)
		room.Ridable = mapdata.RidableType(ridable)
		room.Align = mapdata.AlignType(align)
		room.MobFlags = flags.FromUint32[mapdata.MobFlag](uint32(mobs))
		room.LoadFlags = flags.FromUint32[mapdata.LoadFlag](uint32(loads))
		room.Position = mapdata.Coordinate{X: x, Y: y, Z: z}
		byID[room.ID] = room
		snap.Rooms = append(snap.Rooms, room)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapdata.Snapshot{}, fmt.Errorf("reading rooms: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT room_id, direction, door_name, exit_flags, door_flags, targets
		FROM exits WHERE map_id = $1`,
		info.ID,
	)
	if err != nil {
		return mapdata.Snapshot{}, fmt.Errorf("querying exits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			roomID             int32
			dir                int16
			doorName           string
			exitBits, doorBits int64
			targets            []int32
		)
		if err := rows.Scan(&roomID, &dir, &doorName, &exitBits, &doorBits, &targets); err != nil {
			return mapdata.Snapshot{}, fmt.Errorf("scanning exit: %w", err)
		}
		room, ok := byID[mapdata.RoomID(roomID)]
		d := mapdata.ExitDirection(dir)
		if !ok || !d.IsNESWUD() {
			r.logger.Warn("skipping orphan exit", zap.Int32("room", roomID), zap.Int16("dir", dir))
			continue
		}
		e := room.Exit(d)
		e.DoorName = doorName
		e.ExitFlags = flags.FromUint32[mapdata.ExitFlag](uint32(exitBits))
		e.DoorFlags = flags.FromUint32[mapdata.DoorFlag](uint32(doorBits))
		for _, t := range targets {
			e.AddOut(mapdata.RoomID(t))
		}
	}
	if err := rows.Err(); err != nil {
		return mapdata.Snapshot{}, fmt.Errorf("reading exits: %w", err)
	}

	r.logger.Info("map loaded", zap.String("map", name), zap.Int("rooms", len(snap.Rooms)))
	return snap, nil
}

// Store binds a repository to one map name and owns the pool.
type Store struct {
	pool *Pool
	repo *MapRepository
	name string
}

// NewStore returns a store for the named map.
//
// Precondition: pool must be connected; name must be non-empty.
func NewStore(pool *Pool, name string, logger *zap.Logger) *Store {
	return &Store{pool: pool, repo: NewMapRepository(pool.DB(), logger), name: name}
}

// Load reads the map.
func (s *Store) Load(ctx context.Context) (mapdata.Snapshot, error) { return s.repo.Load(ctx, s.name) }

// Save writes the map.
func (s *Store) Save(ctx context.Context, snap mapdata.Snapshot) error {
	return s.repo.Save(ctx, s.name, snap)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) String() string { return "postgres map " + s.name }
