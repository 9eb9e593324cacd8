// Package main runs the mapper: it loads the map, replays a recorded session
// through the room matcher and keeps the map saved.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/pathmachine"
	"github.com/MUME/MMapper-sub000/internal/server"
	"github.com/MUME/MMapper-sub000/internal/session"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/mmapper.yaml", "path to configuration file")
	sessionPath := flag.String("session", "", "session recording to replay; empty waits for a signal")
	mode := flag.String("mode", "", "override mapper.mode: play, map or offline")
	storageTarget := flag.String("storage", "", "override mapper.storage")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *mode != "" {
		cfg.Mapper.Mode = *mode
	}
	if *storageTarget != "" {
		cfg.Mapper.Storage = *storageTarget
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	a, cleanup, err := initApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initializing mapper: %v", err)
	}
	defer cleanup()
	logger := a.Logger

	logger.Info("starting mapper",
		zap.String("mode", cfg.Mapper.Mode),
		zap.String("storage", cfg.Mapper.Storage),
		zap.String("map", cfg.Mapper.MapName),
	)

	if err := a.Persister.Load(ctx); err != nil {
		logger.Fatal("loading map", zap.Error(err))
	}
	logger.Info("map ready", zap.Int("rooms", a.Map.RoomCount()), zap.Duration("elapsed", time.Since(start)))

	a.Machine.AddListener(pathmachine.ListenerFunc(func(room *mapdata.Room) {
		logger.Debug("player moved", zap.Uint32("room", uint32(room.ID)), zap.String("name", room.Name))
	}))

	lc := server.NewLifecycle(logger)
	if *sessionPath != "" {
		rec, err := session.LoadFile(*sessionPath)
		if err != nil {
			logger.Fatal("loading session", zap.Error(err))
		}
		lc.Add("replay", server.ServiceFunc(func(ctx context.Context) error {
			stats, err := a.Replayer.Replay(ctx, rec)
			if err != nil {
				return err
			}
			logger.Info("session replayed", zap.Int("events", stats.Events), zap.Int("clock_syncs", stats.ClockSyncs))
			return nil
		}))
	}
	lc.Add("clock", server.ServiceFunc(func(ctx context.Context) error {
		stop := a.Clock.Start(time.Second)
		defer stop()
		<-ctx.Done()
		return ctx.Err()
	}))

	// Only map mode changes the map, and a clean map is never written.
	if cfg.Mapper.AutosaveInterval > 0 {
		lc.Add("autosave", server.ServiceFunc(func(ctx context.Context) error {
			return a.Persister.Autosave(ctx, cfg.Mapper.AutosaveInterval)
		}))
	}
	lc.OnStop("save map", a.Persister.Flush)

	if err := lc.Run(ctx); err != nil {
		logger.Error("mapper stopped with errors", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	if cur, ok := a.Machine.CurrentRoom(); ok {
		logger.Info("final position", zap.Stringer("room", cur), zap.Stringer("state", a.Machine.State()))
	}
}
