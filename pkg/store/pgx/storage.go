package pgx

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/planrag/backend/pkg/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface on PostgreSQL with
// pgvector for similarity search. Writes are serialized with a mutex so
// concurrent ingests cannot interleave node and edge upserts.
type GraphDBStorage struct {
	conn        pgxIConn
	localRadius int
	dbLock      sync.Mutex
}

type GraphDBStorageOption func(*GraphDBStorage)

// WithLocalRadius overrides the neighborhood radius used by local retrieval.
func WithLocalRadius(hops int) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		if hops > 0 {
			s.localRadius = hops
		}
	}
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage on an existing
// connection or pool. The caller owns the connection lifecycle.
func NewGraphDBStorageWithConnection(
	ctx context.Context,
	conn pgxIConn,
	opts ...GraphDBStorageOption,
) (*GraphDBStorage, error) {
	s := &GraphDBStorage{
		conn:        conn,
		localRadius: 2,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// RunMigrations applies the embedded schema migrations against databaseURL.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func marshalFields(fields schema.Record) ([]byte, error) {
	if fields == nil {
		fields = schema.Record{}
	}
	return json.Marshal(fields)
}

func unmarshalFields(raw []byte) (schema.Record, error) {
	fields := schema.Record{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
