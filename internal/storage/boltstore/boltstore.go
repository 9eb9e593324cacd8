// Package boltstore keeps maps in a local bolt database file. Each map lives
// in its own bucket holding a meta bucket (map id, save time) and a rooms
// bucket keyed by room id.
package boltstore

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

var (
	mapsBucket  = []byte("maps")
	metaBucket  = []byte("meta")
	roomsBucket = []byte("rooms")
	metaID      = []byte("id")
	metaSavedAt = []byte("saved_at")
)

// Store is a bolt-backed map store bound to one map name.
type Store struct {
	db     *bolt.DB
	name   string
	logger *zap.Logger
}

// Open opens or creates the bolt file at path.
//
// Precondition: name must be non-empty; logger must be non-nil.
// Postcondition: Returns an open Store or a non-nil error. Close must be
// called to release the file lock.
func Open(path, name string, logger *zap.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt map %s: %w", path, err)
	}
	return &Store{db: db, name: name, logger: logger.Named("boltstore")}, nil
}

// ID returns the identity assigned to the map on its first save.
//
// Postcondition: Returns mapdata.ErrMapNotFound if the map was never saved.
func (s *Store) ID() (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := s.bucket(tx, metaBucket)
		if meta == nil {
			return fmt.Errorf("map %q: %w", s.name, mapdata.ErrMapNotFound)
		}
		var err error
		id, err = uuid.FromBytes(meta.Get(metaID))
		return err
	})
	return id, err
}

func (s *Store) bucket(tx *bolt.Tx, name []byte) *bolt.Bucket {
	maps := tx.Bucket(mapsBucket)
	if maps == nil {
		return nil
	}
	m := maps.Bucket([]byte(s.name))
	if m == nil {
		return nil
	}
	return m.Bucket(name)
}

// Save replaces the stored rooms with snap in one transaction.
//
// Postcondition: On success a following Load returns the same rooms and links.
func (s *Store) Save(ctx context.Context, snap mapdata.Snapshot) error {
	start := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		maps, err := tx.CreateBucketIfNotExists(mapsBucket)
		if err != nil {
			return err
		}
		m, err := maps.CreateBucketIfNotExists([]byte(s.name))
		if err != nil {
			return err
		}
		meta, err := m.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if meta.Get(metaID) == nil {
			id := uuid.New()
			if err := meta.Put(metaID, id[:]); err != nil {
				return err
			}
		}
		stamp, err := time.Now().UTC().MarshalBinary()
		if err != nil {
			return err
		}
		if err := meta.Put(metaSavedAt, stamp); err != nil {
			return err
		}

		if m.Bucket(roomsBucket) != nil {
			if err := m.DeleteBucket(roomsBucket); err != nil {
				return err
			}
		}
		rooms, err := m.CreateBucket(roomsBucket)
		if err != nil {
			return err
		}
		for i, r := range snap.Rooms {
			if i%1024 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			if err := rooms.Put(roomKey(r.ID), encodeRoom(r)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving map %q: %w", s.name, err)
	}
	s.logger.Info("map saved",
		zap.String("map", s.name),
		zap.Int("rooms", len(snap.Rooms)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Load reads every room of the map in id order.
//
// Postcondition: Returns mapdata.ErrMapNotFound if the map was never saved.
func (s *Store) Load(ctx context.Context) (mapdata.Snapshot, error) {
	var snap mapdata.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		rooms := s.bucket(tx, roomsBucket)
		if rooms == nil {
			return fmt.Errorf("map %q: %w", s.name, mapdata.ErrMapNotFound)
		}
		snap.Rooms = make([]*mapdata.Room, 0, rooms.Stats().KeyN)
		c := rooms.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(snap.Rooms)%1024 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			if len(k) != 4 {
				return fmt.Errorf("room key %x: %w", k, errBadRecord)
			}
			r, err := decodeRoom(mapdata.RoomID(uint32(k[0])<<24|uint32(k[1])<<16|uint32(k[2])<<8|uint32(k[3])), v)
			if err != nil {
				return err
			}
			snap.Rooms = append(snap.Rooms, r)
		}
		return nil
	})
	if err != nil {
		return mapdata.Snapshot{}, err
	}
	s.logger.Info("map loaded", zap.String("map", s.name), zap.Int("rooms", len(snap.Rooms)))
	return snap, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) String() string { return fmt.Sprintf("bolt map %s in %s", s.name, s.db.Path()) }
