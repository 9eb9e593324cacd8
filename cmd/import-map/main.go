// Package main copies a map between storages, e.g. from a YAML file into
// the shared PostgreSQL database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/importer"
	"github.com/MUME/MMapper-sub000/internal/observability"
	"github.com/MUME/MMapper-sub000/internal/storage"
)

func main() {
	from := flag.String("from", "", "source storage: map file or postgres:// URI")
	to := flag.String("to", "", "destination storage: map file or postgres:// URI")
	mapName := flag.String("map", "arda", "map name inside shared storage")
	flag.Parse()

	if *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "usage: import-map -from <storage> -to <storage> [-map <name>]")
		os.Exit(1)
	}

	logger, err := observability.NewLogger(config.LoggingConfig{Level: "info", Format: "auto"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	opts := storage.Options{MapName: *mapName}
	src, err := storage.Open(ctx, *from, opts, logger)
	if err != nil {
		logger.Fatal("opening source", zap.Error(err))
	}
	defer src.Close()
	dst, err := storage.Open(ctx, *to, opts, logger)
	if err != nil {
		logger.Fatal("opening destination", zap.Error(err))
	}
	defer dst.Close()

	report, err := importer.New(src, logger).Run(ctx, dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d rooms, %d links (%d dropped) in %s\n",
		report.Rooms, report.Links, report.Dropped, report.Elapsed.Round(time.Millisecond))
}
