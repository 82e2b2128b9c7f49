package pagedir

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/postgres"
)

// Resolver maps a document ID to its URL. Both *Dir and *Registry
// implement it.
type Resolver interface {
	URLOf(ctx context.Context, docID int) (string, error)
}

// OpenResolver returns the URL source named by cfg.Search.PageSource:
// the page directory at path for "fs", the documents table for
// "postgres". The returned close function releases the source.
func OpenResolver(ctx context.Context, cfg *config.Config, path string) (Resolver, func() error, error) {
	switch cfg.Search.PageSource {
	case "postgres":
		if !cfg.Postgres.Enabled {
			return nil, nil, fmt.Errorf("page source postgres requires postgres.enabled")
		}
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to document registry: %w", err)
		}
		return NewRegistry(client), client.Close, nil
	default:
		dir, err := Open(path)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() error { return nil }, nil
	}
}
