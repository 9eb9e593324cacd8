package importer_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MUME/MMapper-sub000/internal/importer"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/storage"
	"github.com/MUME/MMapper-sub000/internal/storage/boltstore"
	"github.com/MUME/MMapper-sub000/internal/testutil"
)

type snapSource struct {
	snap mapdata.Snapshot
	err  error
}

func (s snapSource) Load(context.Context) (mapdata.Snapshot, error) { return s.snap, s.err }

type failingSink struct{ called bool }

func (f *failingSink) Save(context.Context, mapdata.Snapshot) error {
	f.called = true
	return errors.New("read-only")
}

func TestImporter_YAMLToBolt(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()
	dir := t.TempDir()

	yamlStore := storage.NewFileStore(filepath.Join(dir, "arda.yaml"), "arda", logger)
	require.NoError(t, yamlStore.Save(ctx, testutil.SampleSnapshot()))

	dst, err := boltstore.Open(filepath.Join(dir, "arda.db"), "arda", logger)
	require.NoError(t, err)
	defer dst.Close()

	report, err := importer.New(yamlStore, logger).Run(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rooms)
	assert.Equal(t, 4, report.Links)
	assert.Zero(t, report.Dropped)

	got, err := dst.Load(ctx)
	require.NoError(t, err)
	testutil.RequireSameMap(t, testutil.SampleSnapshot(), got)
}

func TestImporter_DropsDanglingLinks(t *testing.T) {
	logger := zaptest.NewLogger(t)
	snap := testutil.SampleSnapshot()
	snap.Rooms[1].Exit(mapdata.East).AddOut(99)

	dst := &memSink{}
	report, err := importer.New(snapSource{snap: snap}, logger).Run(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Empty(t, dst.saved.Rooms[1].Exit(mapdata.East).Outgoing())
}

type memSink struct{ saved mapdata.Snapshot }

func (b *memSink) Save(_ context.Context, snap mapdata.Snapshot) error {
	b.saved = snap
	return nil
}

func TestImporter_Errors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	sink := &failingSink{}
	_, err := importer.New(snapSource{err: mapdata.ErrMapNotFound}, logger).Run(ctx, sink)
	assert.ErrorIs(t, err, mapdata.ErrMapNotFound)
	assert.False(t, sink.called)

	_, err = importer.New(snapSource{snap: testutil.SampleSnapshot()}, logger).Run(ctx, sink)
	assert.ErrorContains(t, err, "read-only")
	assert.True(t, sink.called)
}
