package pagedir

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/postgres"
)

// skipIfNoPostgres skips unless TEST_POSTGRES_HOST names a reachable server.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("skipping integration test: TEST_POSTGRES_HOST not set")
	}
	port, err := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	if err != nil {
		t.Fatalf("TEST_POSTGRES_PORT: %v", err)
	}
	cfg := config.PostgresConfig{
		Host:            host,
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "tse_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "tse"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestRegistry(t *testing.T) {
	client := skipIfNoPostgres(t)
	ctx := context.Background()
	reg := NewRegistry(client)
	if err := reg.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.DB.ExecContext(ctx, `TRUNCATE documents`); err != nil {
		t.Fatal(err)
	}

	pages := []Page{
		{DocID: 1, URL: "http://a/1", Depth: 0},
		{DocID: 2, URL: "http://a/2", Depth: 1},
	}
	if err := reg.Register(ctx, pages); err != nil {
		t.Fatal(err)
	}
	// Registering again overwrites rather than failing.
	pages[1].URL = "http://a/two"
	if err := reg.Register(ctx, pages); err != nil {
		t.Fatal(err)
	}

	url, err := reg.URLOf(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if url != "http://a/two" {
		t.Errorf("URLOf(2) = %q", url)
	}
	if _, err := reg.URLOf(ctx, 99); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("URLOf(99) error = %v", err)
	}
	n, err := reg.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountDocuments = %d", n)
	}
}
