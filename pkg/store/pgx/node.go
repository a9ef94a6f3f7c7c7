package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

// UpsertNode inserts the node or merges the given fields into an existing one.
// Re-registering an ID with a different kind is rejected.
func (s *GraphDBStorage) UpsertNode(ctx context.Context, id string, kind schema.Kind, fields schema.Record) error {
	raw, err := marshalFields(fields)
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	var existingKind string
	err = s.conn.QueryRow(ctx, `SELECT kind FROM nodes WHERE id = $1`, id).Scan(&existingKind)
	if err != nil && !errors.Is(err, pgxv5.ErrNoRows) {
		return err
	}
	if err == nil && existingKind != string(kind) {
		return &schema.ValidationError{
			Kind:   kind,
			Field:  "id",
			Value:  id,
			Reason: fmt.Sprintf("node already registered as %s", existingKind),
		}
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO nodes (id, kind, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET fields = nodes.fields || EXCLUDED.fields, updated_at = now()`,
		id, string(kind), raw)
	return err
}

func (s *GraphDBStorage) GetNode(ctx context.Context, id string) (*store.Node, error) {
	var (
		kind string
		raw  []byte
	)
	err := s.conn.QueryRow(ctx, `SELECT kind, fields FROM nodes WHERE id = $1`, id).Scan(&kind, &raw)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	fields, err := unmarshalFields(raw)
	if err != nil {
		return nil, err
	}
	return &store.Node{ID: id, Kind: schema.Kind(kind), Fields: fields}, nil
}
