// Package mapper ties a live map to its storage: loading at startup,
// periodic background saves, and a final flush on shutdown.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/async"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// Store is the storage a Persister reads from and writes to.
type Store interface {
	Load(ctx context.Context) (mapdata.Snapshot, error)
	Save(ctx context.Context, snap mapdata.Snapshot) error
}

// Persister saves a map whenever it has changed since the last save. At
// most one save runs at a time; the map rejects changes while it does.
type Persister struct {
	m      *mapdata.MapData
	store  Store
	logger *zap.Logger

	dirty atomic.Bool
	mu    sync.Mutex
	task  *async.Task
}

// NewPersister subscribes to m's changes.
//
// Precondition: m, store and logger must be non-nil.
func NewPersister(m *mapdata.MapData, store Store, logger *zap.Logger) *Persister {
	p := &Persister{m: m, store: store, logger: logger.Named("persister")}
	m.Subscribe(func(mapdata.ChangeSet) { p.dirty.Store(true) })
	return p
}

// Dirty reports whether the map changed since the last successful save.
func (p *Persister) Dirty() bool { return p.dirty.Load() }

// Load replaces the map with the stored one. A store that holds no map
// leaves the map empty.
//
// Postcondition: Dirty() is false on success.
func (p *Persister) Load(ctx context.Context) error {
	snap, err := p.store.Load(ctx)
	if errors.Is(err, mapdata.ErrMapNotFound) {
		p.logger.Info("no stored map, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading map: %w", err)
	}
	if err := p.m.Load(ctx, snap); err != nil {
		return err
	}
	p.dirty.Store(false)
	return nil
}

// StartSave begins a background save of the current map.
//
// Postcondition: Returns nil without starting anything when the map is clean
// or a previous save is still running.
func (p *Persister) StartSave(ctx context.Context) (*async.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		if done, _ := p.task.Poll(0); !done {
			p.logger.Debug("previous save still running")
			return nil, nil
		}
		p.task = nil
	}
	if !p.dirty.Load() {
		return nil, nil
	}

	release, err := p.m.Block(ctx)
	if err != nil {
		return nil, err
	}
	snap := p.m.Export()
	p.dirty.Store(false)
	p.task = async.Start(context.WithoutCancel(ctx), "save", p.logger, func(ctx context.Context, t *async.Task) error {
		defer release()
		if t.CancelRequested() {
			p.dirty.Store(true)
			return async.ErrCanceled
		}
		if err := p.store.Save(ctx, snap); err != nil {
			p.dirty.Store(true)
			return err
		}
		return nil
	})
	return p.task, nil
}

// Flush waits for a running save and then saves any remaining changes.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	running := p.task
	p.mu.Unlock()
	if running != nil {
		if err := running.Wait(ctx); err != nil && !errors.Is(err, async.ErrCanceled) {
			p.logger.Warn("earlier save failed", zap.Error(err))
		}
	}
	task, err := p.StartSave(ctx)
	if err != nil || task == nil {
		return err
	}
	return task.Wait(ctx)
}

// Cancel asks a running save to stop before it writes anything.
func (p *Persister) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		p.task.RequestCancel()
	}
}

// Autosave starts a save every interval until ctx is cancelled.
//
// Precondition: interval > 0.
func (p *Persister) Autosave(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.StartSave(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("autosave not started", zap.Error(err))
			}
		}
	}
}
