//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/MUME/MMapper-sub000/internal/clock"
	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
	"github.com/MUME/MMapper-sub000/internal/mapper"
	"github.com/MUME/MMapper-sub000/internal/parser"
	"github.com/MUME/MMapper-sub000/internal/pathmachine"
	"github.com/MUME/MMapper-sub000/internal/session"
	"github.com/MUME/MMapper-sub000/internal/storage"
)

func initApp(ctx context.Context, cfg config.Config) (*app, func(), error) {
	wire.Build(
		provideLogger,
		provideStore,
		provideParams,
		provideMode,
		provideClock,
		mapdata.New,
		pathmachine.New,
		parser.New,
		session.NewReplayer,
		mapper.NewPersister,
		wire.Bind(new(pathmachine.Map), new(*mapdata.MapData)),
		wire.Bind(new(session.Machine), new(*pathmachine.Machine)),
		wire.Bind(new(session.Clock), new(*clock.Clock)),
		wire.Bind(new(mapper.Store), new(storage.Store)),
		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
