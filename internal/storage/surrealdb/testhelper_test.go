package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	surreal "github.com/surrealdb/surrealdb.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	surrealOnce    sync.Once
	surrealAddress string
	surrealError   error
)

// startSurrealDB starts one shared SurrealDB container per test process
// and returns its websocket RPC address.
func startSurrealDB(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping SurrealDB container test in short mode")
	}
	if os.Getenv("TICKERWATCH_SURREAL_TESTS") == "" {
		t.Skip("set TICKERWATCH_SURREAL_TESTS=1 to run SurrealDB container tests")
	}

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealAddress = fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port())
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}

	return surrealAddress
}

// testConfig returns connection settings using a unique database per test.
func testConfig(t *testing.T) Config {
	t.Helper()

	addr := startSurrealDB(t)

	// SurrealDB rejects "/" in database names
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return Config{
		Address:   addr,
		Namespace: "tickerwatch_test",
		Database:  fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000),
		Username:  "root",
		Password:  "root",
	}
}

// testDB returns a raw connection for assertions outside the Store API.
func testDB(t *testing.T, cfg Config) *surreal.DB {
	t.Helper()
	ctx := context.Background()

	db, err := surreal.New(cfg.Address)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	if _, err := db.SignIn(ctx, map[string]interface{}{"user": cfg.Username, "pass": cfg.Password}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}
