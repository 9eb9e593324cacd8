package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/storage"
	"github.com/MUME/MMapper-sub000/internal/storage/boltstore"
	"github.com/MUME/MMapper-sub000/internal/testutil"
)

func openStore(t *testing.T, target string) storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), target, storage.Options{MapName: "arda"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arda.yaml")
	s := openStore(t, path)
	assert.IsType(t, &storage.FileStore{}, s)
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, mapdata.ErrMapNotFound)

	want := testutil.SampleSnapshot()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	testutil.RequireSameMap(t, want, got)

	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_NewBoltFileByExtension(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "arda.db"))
	assert.IsType(t, &boltstore.Store{}, s)
}

func TestOpen_SniffsBoltWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arda.map")
	b, err := boltstore.Open(path, "arda", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, b.Save(context.Background(), testutil.SampleSnapshot()))
	require.NoError(t, b.Close())

	s := openStore(t, path)
	require.IsType(t, &boltstore.Store{}, s)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	testutil.RequireSameMap(t, testutil.SampleSnapshot(), got)
}

func TestOpen_UnknownTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a map, just some text"), 0o600))

	_, err := storage.Open(context.Background(), path, storage.Options{MapName: "arda"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, storage.ErrUnknownStorage)
}

func TestOpen_Postgres(t *testing.T) {
	s := openStore(t, testutil.StartPostgres(t).DSN())
	ctx := context.Background()

	want := testutil.SampleSnapshot()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	testutil.RequireSameMap(t, want, got)
}
