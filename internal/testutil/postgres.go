// Package testutil provides test helpers: a throwaway PostgreSQL database
// holding the map schema, and small map fixtures.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MUME/MMapper-sub000/internal/config"
	"github.com/MUME/MMapper-sub000/internal/storage/postgres"
	"github.com/MUME/MMapper-sub000/migrations"
)

// StartPostgres runs a disposable PostgreSQL container with the map schema
// applied and returns its connection settings. The container is removed when
// the test ends. Tests using it are skipped under -short.
//
// Precondition: Docker must be available.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("needs a postgres container")
	}
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "mapper",
				"POSTGRES_PASSWORD": "mapper",
				"POSTGRES_DB":       "maps",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "starting postgres")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "mapper",
		Password:        "mapper",
		Name:            "maps",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}
	migrateUp(t, cfg.DSN())
	t.Logf("postgres ready at %s:%d [%s]", host, cfg.Port, time.Since(start))
	return cfg
}

func migrateUp(t *testing.T, dsn string) {
	t.Helper()
	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	require.NoError(t, err)
	defer m.Close()
	if err := m.Up(); !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "applying migrations")
	}
}

// NewPool connects to a fresh database from StartPostgres.
func NewPool(t *testing.T) *postgres.Pool {
	t.Helper()
	pool, err := postgres.NewPool(context.Background(), StartPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
