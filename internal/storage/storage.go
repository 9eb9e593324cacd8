// Package storage selects a map backend from a storage target: a YAML file,
// a bolt database file, or a postgres:// URI.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/storage/boltstore"
	"github.com/MUME/MMapper-sub000/internal/storage/postgres"
)

// ErrUnknownStorage is returned when a target matches no backend.
var ErrUnknownStorage = errors.New("unknown map storage")

// Store persists one map.
type Store interface {
	// Load returns the stored map, or an error wrapping mapdata.ErrMapNotFound.
	Load(ctx context.Context) (mapdata.Snapshot, error)
	Save(ctx context.Context, snap mapdata.Snapshot) error
	Close() error
}

// Options carries the settings shared by every backend.
type Options struct {
	MapName  string
	Database config.DatabaseConfig
}

const boltMagic = 0xED0CDAED

// Open returns the backend for target.
//
// Precondition: target must be non-empty.
// Postcondition: Returns an open Store or an error wrapping ErrUnknownStorage
// when no backend recognises target.
func Open(ctx context.Context, target string, opts Options, logger *zap.Logger) (Store, error) {
	logger = logger.Named("storage")
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		pool, err := postgres.NewPoolDSN(ctx, target, opts.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres storage", zap.String("map", opts.MapName))
		return postgres.NewStore(pool, opts.MapName, logger), nil
	}

	isBolt, err := sniffBolt(target)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(target))
	switch {
	case isBolt, ext == ".db", ext == ".bolt":
		logger.Info("using bolt storage", zap.String("path", target), zap.String("map", opts.MapName))
		return boltstore.Open(target, opts.MapName, logger)
	case ext == ".yaml", ext == ".yml":
		logger.Info("using yaml storage", zap.String("path", target))
		return NewFileStore(target, opts.MapName, logger), nil
	}
	return nil, fmt.Errorf("%q: %w", target, ErrUnknownStorage)
}

// sniffBolt reports whether path holds a bolt database, judged by the
// magic number in its first meta page. A missing file is not an error.
func sniffBolt(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var hdr [20]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false, nil
	}
	magic := hdr[16:20]
	return binary.LittleEndian.Uint32(magic) == boltMagic || binary.BigEndian.Uint32(magic) == boltMagic, nil
}

// FileStore keeps a map in a single YAML document.
type FileStore struct {
	path   string
	name   string
	logger *zap.Logger
}

// NewFileStore returns a store for the YAML file at path. The file is only
// touched by Load and Save.
func NewFileStore(path, name string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, name: name, logger: logger}
}

// Load reads the file.
//
// Postcondition: Returns an error wrapping mapdata.ErrMapNotFound if the file does not exist.
func (s *FileStore) Load(ctx context.Context) (mapdata.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return mapdata.Snapshot{}, err
	}
	snap, name, err := mapdata.LoadSnapshotFromFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return mapdata.Snapshot{}, fmt.Errorf("%s: %w", s.path, mapdata.ErrMapNotFound)
	}
	if err != nil {
		return mapdata.Snapshot{}, err
	}
	if name != "" {
		s.name = name
	}
	s.logger.Info("map loaded", zap.String("path", s.path), zap.String("map", s.name), zap.Int("rooms", len(snap.Rooms)))
	return snap, nil
}

// Save atomically rewrites the file.
func (s *FileStore) Save(ctx context.Context, snap mapdata.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mapdata.WriteSnapshotFile(s.path, s.name, snap); err != nil {
		return err
	}
	s.logger.Info("map saved", zap.String("path", s.path), zap.Int("rooms", len(snap.Rooms)))
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) String() string { return "yaml map " + s.path }
