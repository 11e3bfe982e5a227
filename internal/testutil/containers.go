// Package testutil starts the containers integration and e2e tests run against.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloo-solutions/docrag/internal/database"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	// RustFSAccessKey and RustFSSecretKey are the static credentials of the RustFS container.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

// Endpoint is a started container reachable at Host:Port. The container is removed when
// the test that started it finishes.
type Endpoint struct {
	Host string
	Port string
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) Endpoint {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("failed to get %s port: %v", req.Image, err)
	}
	return Endpoint{Host: host, Port: mapped.Port()}
}

// StartPostgres runs pgvector-enabled Postgres and returns its connection string.
func StartPostgres(ctx context.Context, t *testing.T) string {
	ep := start(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "docrag",
			"POSTGRES_PASSWORD": "docrag",
			"POSTGRES_DB":       "docrag",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")
	return fmt.Sprintf("postgres://docrag:docrag@%s:%s/docrag?sslmode=disable", ep.Host, ep.Port)
}

// StartRustFS runs an S3-compatible RustFS server and returns its endpoint URL.
func StartRustFS(ctx context.Context, t *testing.T) string {
	ep := start(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")
	return fmt.Sprintf("http://%s:%s", ep.Host, ep.Port)
}

// NewMigratedPool migrates the database with the migrations under migrationsDir and
// returns a pool that is closed when the test finishes.
func NewMigratedPool(ctx context.Context, t *testing.T, databaseURL, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 10)); err != nil {
		t.Fatalf("database never became reachable: %v", err)
	}

	if err := database.MigrateUp(databaseURL, migrationsDir); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}
