package testdb

import (
	"context"
	"sync"
	"testing"

	"student-manager/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

var (
	sharedContainer *PostgresContainer
	sharedOnce      sync.Once
	sharedMu        sync.Mutex
)

// PostgresContainer wraps the postgres testcontainer
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres starts one PostgreSQL container per test binary and
// hands the same instance to every caller.
//
// Tests using the shared container cannot run in parallel.
//
// Usage:
//
//	func TestUserHandler(t *testing.T) {
//	    pg := testdb.SetupSharedPostgres(t)
//	    defer pg.Cleanup(t) // once, at top level
//
//	    pg.Migrate(t, schema.Migrate)
//
//	    t.Run("Create", func(t *testing.T) {
//	        testdb.CleanupTables(t, pg.DB, schema.Tables...)
//	        // ...
//	    })
//	}
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	sharedOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
			),
		)
		require.NoError(t, err)

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)

		database, err := db.NewWithDSN(ctx, connStr)
		require.NoError(t, err)

		sharedContainer = &PostgresContainer{
			Container: pgContainer,
			DB:        database,
			DSN:       connStr,
		}
	})

	require.NotNil(t, sharedContainer, "shared postgres container failed to start")
	return sharedContainer
}

// Cleanup closes the pool and terminates the container. A later
// SetupSharedPostgres starts a fresh one.
func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if pc.DB != nil {
		_ = pc.DB.Close()
	}

	if pc.Container != nil {
		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	if sharedContainer == pc {
		sharedContainer = nil
		sharedOnce = sync.Once{}
	}
}

// Migrate applies the service schema to the container database.
func (pc *PostgresContainer) Migrate(t *testing.T, migrate func(ctx context.Context, db bun.IDB) error) {
	t.Helper()
	require.NoError(t, migrate(context.Background(), pc.DB), "failed to run migrations")
}

func CleanupTables(t *testing.T, db *bun.DB, tables ...string) {
	t.Helper()

	ctx := context.Background()

	for _, table := range tables {
		_, err := db.ExecContext(ctx, "TRUNCATE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err, "failed to truncate table: %s", table)
	}
}
