package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/stay-harvester/internal/adapter/bsondoc"
	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
	"github.com/user/stay-harvester/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  TEXT        NOT NULL,
	natural_key TEXT        NOT NULL,
	doc         JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, natural_key)
);

CREATE INDEX IF NOT EXISTS documents_doc_idx ON documents USING GIN (doc jsonb_path_ops);

CREATE TABLE IF NOT EXISTS failed_listings (
	listing_id             TEXT        PRIMARY KEY,
	city                   TEXT        NOT NULL,
	stage                  TEXT        NOT NULL,
	failure_reason         TEXT        NOT NULL,
	attempts               BIGINT      NOT NULL DEFAULT 1,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL
);
`

// DocumentStoreImpl keeps every collection in one JSONB table. Documents are
// stored as canonical Extended JSON so that integers and dates read back
// with their original types.
type DocumentStoreImpl struct {
	db *pgxpool.Pool
}

// NewDocumentStore opens a pool on connString and checks it with a ping.
func NewDocumentStore(ctx context.Context, connString string) (*DocumentStoreImpl, error) {
	db, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DocumentStoreImpl{db: db}, nil
}

// Pool exposes the connection pool to repositories sharing it.
func (s *DocumentStoreImpl) Pool() *pgxpool.Pool {
	return s.db
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *DocumentStoreImpl) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *DocumentStoreImpl) Collection(name string) repository.Collection {
	return &collectionImpl{db: s.db, name: name}
}

func (s *DocumentStoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *DocumentStoreImpl) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}

type collectionImpl struct {
	db   *pgxpool.Pool
	name string
}

// naturalKey hashes the encoded filter. Filters always hold the complete
// natural key, and FromFields sorts keys, so one record has one hash.
func naturalKey(filter entity.Fields) (string, error) {
	b, err := bsondoc.MarshalExtJSON(filter)
	if err != nil {
		return "", err
	}
	return utils.HashKey(b), nil
}

func (c *collectionImpl) FindOne(ctx context.Context, filter entity.Fields) (entity.Fields, error) {
	key, err := naturalKey(filter)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = c.db.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND natural_key = $2;`,
		c.name, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bsondoc.UnmarshalExtJSON(raw)
}

// Find matches by JSONB containment. Canonical Extended JSON encodes a
// value the same way in the filter and in the stored document.
func (c *collectionImpl) Find(ctx context.Context, filter entity.Fields) ([]entity.Fields, error) {
	b, err := bsondoc.MarshalExtJSON(filter)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY created_at, natural_key;`,
		c.name, string(b),
	)
	if err != nil {
		return nil, err
	}
	raws, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	out := make([]entity.Fields, 0, len(raws))
	for _, raw := range raws {
		doc, err := bsondoc.UnmarshalExtJSON(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *collectionImpl) InsertOne(ctx context.Context, doc entity.Fields) error {
	fields, ok := entity.NaturalKeys[c.name]
	if !ok {
		return fmt.Errorf("unknown collection %q", c.name)
	}
	key, err := naturalKey(doc.Pick(fields...))
	if err != nil {
		return err
	}
	b, err := bsondoc.MarshalExtJSON(doc)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(ctx,
		`INSERT INTO documents (collection, natural_key, doc) VALUES ($1, $2, $3::jsonb);`,
		c.name, key, string(b),
	)
	return err
}

func (c *collectionImpl) UpdateOne(ctx context.Context, filter entity.Fields, set entity.Fields) error {
	key, err := naturalKey(filter)
	if err != nil {
		return err
	}
	b, err := bsondoc.MarshalExtJSON(set)
	if err != nil {
		return err
	}
	tag, err := c.db.Exec(ctx,
		`UPDATE documents SET doc = doc || $3::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND natural_key = $2;`,
		c.name, key, string(b),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
