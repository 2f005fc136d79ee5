package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps documents in a single JSONB table.
type PostgresStore struct {
	pool pgxQuerier
}

var (
	_ Store        = (*PostgresStore)(nil)
	_ KeyedCreator = (*PostgresStore)(nil)
)

// NewPostgresStore returns a store backed by the documents table.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("docstore: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	if q == nil {
		panic("docstore: querier required")
	}
	return &PostgresStore{pool: q}
}

// Get fetches one document by collection and id.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	query := `SELECT id, fields, created_at FROM documents WHERE collection = $1 AND id = $2`

	var (
		docID     string
		raw       []byte
		createdAt time.Time
	)
	if err := s.pool.QueryRow(ctx, query, collection, id).Scan(&docID, &raw, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	return decodeRow(collection, docID, raw, createdAt)
}

// Query returns documents whose fields contain every filter value.
func (s *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var (
		rows pgx.Rows
		err  error
	)
	if len(filters) == 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT id, fields, created_at FROM documents WHERE collection = $1 ORDER BY created_at, id`,
			collection)
	} else {
		containment := make(map[string]any, len(filters))
		for _, f := range filters {
			containment[f.Field] = f.Value
		}
		payload, merr := json.Marshal(containment)
		if merr != nil {
			return nil, fmt.Errorf("docstore: marshal filters: %w", merr)
		}
		rows, err = s.pool.Query(ctx,
			`SELECT id, fields, created_at FROM documents WHERE collection = $1 AND fields @> $2::jsonb ORDER BY created_at, id`,
			collection, string(payload))
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			docID     string
			raw       []byte
			createdAt time.Time
		)
		if err := rows.Scan(&docID, &raw, &createdAt); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", collection, err)
		}
		doc, err := decodeRow(collection, docID, raw, createdAt)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: iterate %s: %w", collection, err)
	}
	return docs, nil
}

// List returns the whole collection ordered by creation time.
func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.Query(ctx, collection)
}

// Create inserts a document; created_at is assigned by the database.
func (s *PostgresStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	return s.CreateWithID(ctx, collection, uuid.NewString(), fields)
}

// CreateWithID inserts a document under id. An existing row is left alone
// and reported as ErrAlreadyExists.
func (s *PostgresStore) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal %s document: %w", collection, err)
	}

	query := `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.pool.QueryRow(ctx, query, collection, id, string(payload)).Scan(&createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("docstore: create %s/%s: %w", collection, id, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("docstore: create %s document: %w", collection, err)
	}
	return &Document{ID: id, Collection: collection, Fields: copyFields(fields), CreatedAt: createdAt}, nil
}

func decodeRow(collection, id string, raw []byte, createdAt time.Time) (*Document, error) {
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("docstore: decode %s/%s: %w", collection, id, err)
		}
	}
	return &Document{ID: id, Collection: collection, Fields: fields, CreatedAt: createdAt}, nil
}
