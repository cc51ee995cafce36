// Package dbtest starts a shared PostgreSQL container with migrations
// applied, for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/config"
	"github.com/nikhilbhutani/promptlab/internal/database"
)

const image = "postgres:16-alpine"

var (
	sharedPool *pgxpool.Pool
	sharedOnce sync.Once
	sharedErr  error
)

// Pool returns a pool on a migrated database shared by every test in the
// run, with all tables emptied. Skipped in short mode.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedOnce.Do(func() {
		sharedPool, sharedErr = setup()
	})
	if sharedErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedErr)
	}

	_, err := sharedPool.Exec(context.Background(),
		`TRUNCATE test_prompt_associations, tests, prompts, model_configs, prompt_templates, projects`)
	if err != nil {
		t.Fatalf("Failed to reset test database: %v", err)
	}
	return sharedPool
}

func setup() (*pgxpool.Pool, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "promptlab",
				"POSTGRES_USER":     "promptlab",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	pool, err := database.NewPool(ctx, config.DatabaseConfig{
		URL:             fmt.Sprintf("postgres://promptlab:test_password@%s:%s/promptlab?sslmode=disable", host, port.Port()),
		MaxConns:        10,
		MinConns:        1,
		ConnectAttempts: 5,
	}, zap.NewNop())
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(pool, zap.NewNop()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pool, nil
}
