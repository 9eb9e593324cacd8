package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/clock"
	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/mapper"
	"github.com/MUME/MMapper-sub000/internal/observability"
	"github.com/MUME/MMapper-sub000/internal/pathmachine"
	"github.com/MUME/MMapper-sub000/internal/session"
	"github.com/MUME/MMapper-sub000/internal/storage"
)

// app holds the wired components of one mapper run.
type app struct {
	Cfg       config.Config
	Logger    *zap.Logger
	Store     storage.Store
	Map       *mapdata.MapData
	Machine   *pathmachine.Machine
	Clock     *clock.Clock
	Replayer  *session.Replayer
	Persister *mapper.Persister
}

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	store, err := storage.Open(ctx, cfg.Mapper.Storage, storage.Options{
		MapName:  cfg.Mapper.MapName,
		Database: cfg.Database,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing map storage", zap.Error(err))
		}
	}, nil
}

func provideParams(cfg config.Config) pathmachine.Params {
	return pathmachine.ParamsFromConfig(cfg.PathMachine)
}

func provideMode(cfg config.Config) (pathmachine.Mode, error) {
	return pathmachine.ParseMode(cfg.Mapper.Mode)
}

func provideClock(cfg config.Config, logger *zap.Logger) *clock.Clock {
	return clock.New(cfg.Clock, logger)
}
