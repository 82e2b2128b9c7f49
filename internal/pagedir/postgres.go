package pagedir

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	doc_id     INTEGER PRIMARY KEY,
	url        TEXT NOT NULL,
	depth      INTEGER NOT NULL DEFAULT 0,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Registry keeps document URLs in Postgres so the search service can
// resolve results without access to the crawl directory.
type Registry struct {
	client *postgres.Client
}

func NewRegistry(client *postgres.Client) *Registry {
	return &Registry{client: client}
}

func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// Register upserts the URL and depth of every page in one transaction.
func (r *Registry) Register(ctx context.Context, pages []Page) error {
	return r.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (doc_id, url, depth)
			VALUES ($1, $2, $3)
			ON CONFLICT (doc_id) DO UPDATE
			SET url = EXCLUDED.url, depth = EXCLUDED.depth, indexed_at = now()`)
		if err != nil {
			return fmt.Errorf("preparing document upsert: %w", err)
		}
		defer stmt.Close()
		for _, p := range pages {
			if _, err := stmt.ExecContext(ctx, p.DocID, p.URL, p.Depth); err != nil {
				return fmt.Errorf("registering document %d: %w", p.DocID, err)
			}
		}
		return nil
	})
}

func (r *Registry) URLOf(ctx context.Context, docID int) (string, error) {
	var url string
	err := r.client.DB.QueryRowContext(ctx, `SELECT url FROM documents WHERE doc_id = $1`, docID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.Newf(apperrors.ErrDocumentNotFound, "document %d", docID)
	}
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrIO, "looking up document %d: %v", docID, err)
	}
	return url, nil
}

func (r *Registry) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := r.client.DB.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, apperrors.Newf(apperrors.ErrIO, "counting documents: %v", err)
	}
	return n, nil
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
