package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

// CurrentVersion returns the drawing with a current status for the drawing
// number. Drawings that are superseded or void are skipped.
func (s *GraphDBStorage) CurrentVersion(ctx context.Context, drawingNumber string) (*store.Node, error) {
	var (
		id  string
		raw []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, fields FROM nodes
		WHERE kind = $1
		  AND fields->>'drawing_number' = $2
		  AND COALESCE(fields->>'status', '') NOT IN ($3, $4)
		ORDER BY id
		LIMIT 1`,
		string(schema.KindDrawing), drawingNumber,
		string(schema.StatusSuperseded), string(schema.StatusVoid)).Scan(&id, &raw)
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
	return &store.Node{ID: id, Kind: schema.KindDrawing, Fields: fields}, nil
}

// VersionChain returns every version of the drawing number newest-first by
// following SUPERSEDES edges from the current version. A cycle in the chain
// is reported as a ValidationError.
func (s *GraphDBStorage) VersionChain(ctx context.Context, drawingNumber string) ([]store.Node, error) {
	head, err := s.CurrentVersion(ctx, drawingNumber)
	if err != nil {
		return nil, err
	}

	var chain []store.Node
	visited := map[string]bool{}
	cur := head.ID
	for cur != "" {
		if visited[cur] {
			return nil, &schema.ValidationError{
				Kind: schema.KindDrawing, Field: "drawing_number", Value: drawingNumber,
				Reason: "supersession chain contains a cycle",
			}
		}
		visited[cur] = true
		n, err := s.GetNode(ctx, cur)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, *n)

		var next string
		err = s.conn.QueryRow(ctx, `
			SELECT dst FROM edges WHERE src = $1 AND kind = $2 ORDER BY id LIMIT 1`,
			cur, string(schema.RelSupersedes)).Scan(&next)
		if errors.Is(err, pgxv5.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return chain, nil
}
