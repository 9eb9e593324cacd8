// Package importer copies a map from one storage to another, checking on the
// way that the copy is loadable.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// Source yields a stored map.
type Source interface {
	Load(ctx context.Context) (mapdata.Snapshot, error)
}

// Sink receives a map.
type Sink interface {
	Save(ctx context.Context, snap mapdata.Snapshot) error
}

// Report summarises an import.
type Report struct {
	Rooms   int
	Links   int
	Dropped int
	Elapsed time.Duration
}

// Importer orchestrates a map copy from a Source to a Sink.
type Importer struct {
	source Source
	logger *zap.Logger
}

// New constructs an Importer backed by the given Source.
//
// Precondition: source and logger must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, logger *zap.Logger) *Importer {
	return &Importer{source: source, logger: logger.Named("importer")}
}

// Run loads the source map into a scratch map, which clamps out-of-range
// fields and drops dangling links, and saves the result to dst.
//
// Postcondition: dst holds the cleaned map, or an error is returned and dst
// is untouched.
func (imp *Importer) Run(ctx context.Context, dst Sink) (Report, error) {
	start := time.Now()

	snap, err := imp.source.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("loading source: %w", err)
	}
	before := countLinks(snap)

	scratch := mapdata.New(imp.logger)
	if err := scratch.Load(ctx, snap); err != nil {
		return Report{}, fmt.Errorf("validating map: %w", err)
	}
	cleaned := scratch.Export()
	after := countLinks(cleaned)

	if err := dst.Save(ctx, cleaned); err != nil {
		return Report{}, fmt.Errorf("saving map: %w", err)
	}

	report := Report{
		Rooms:   len(cleaned.Rooms),
		Links:   after,
		Dropped: before - after,
		Elapsed: time.Since(start),
	}
	imp.logger.Info("map imported",
		zap.Int("rooms", report.Rooms),
		zap.Int("links", report.Links),
		zap.Int("dropped_links", report.Dropped),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func countLinks(snap mapdata.Snapshot) int {
	n := 0
	for _, r := range snap.Rooms {
		for _, d := range mapdata.AllExits {
			n += len(r.Exit(d).Outgoing())
		}
	}
	return n
}
