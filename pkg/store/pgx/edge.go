package pgx

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

// UpsertEdge inserts the edge or merges fields into the existing one. Edges
// are unique per (src, dst, kind) so repeated ingests stay idempotent.
func (s *GraphDBStorage) UpsertEdge(ctx context.Context, src, dst string, kind schema.RelKind, fields schema.Record) error {
	if !schema.ValidRelKind(kind) {
		return &schema.SchemaError{Field: "relationship", Value: string(kind), Reason: "unknown relationship kind"}
	}
	raw, err := marshalFields(fields)
	if err != nil {
		return err
	}
	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO edges (id, src, dst, kind, fields)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (src, dst, kind) DO UPDATE
		SET fields = edges.fields || EXCLUDED.fields`,
		id, src, dst, string(kind), raw)
	return err
}

func (s *GraphDBStorage) Edges(ctx context.Context, nodeID string, kind schema.RelKind, dir store.Direction) ([]store.Edge, error) {
	col := "src"
	if dir == store.DirectionIn {
		col = "dst"
	}
	query := `SELECT id, src, dst, kind, fields FROM edges WHERE ` + col + ` = $1`
	args := []any{nodeID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Edge
	for rows.Next() {
		var (
			e   store.Edge
			k   string
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.Src, &e.Dst, &k, &raw); err != nil {
			return nil, err
		}
		e.Kind = schema.RelKind(k)
		if e.Fields, err = unmarshalFields(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Traverse walks edges of the given kind breadth-first from nodeID, up to
// maxHops away. The start node is not included in the result.
func (s *GraphDBStorage) Traverse(ctx context.Context, nodeID string, kind schema.RelKind, dir store.Direction, maxHops int) ([]store.Node, error) {
	if _, err := s.GetNode(ctx, nodeID); err != nil {
		return nil, err
	}

	visited := map[string]bool{nodeID: true}
	frontier := []string{nodeID}
	var out []store.Node

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			edges, err := s.Edges(ctx, id, kind, dir)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				target := e.Dst
				if dir == store.DirectionIn {
					target = e.Src
				}
				if visited[target] {
					continue
				}
				visited[target] = true
				n, err := s.GetNode(ctx, target)
				if err != nil {
					return nil, err
				}
				out = append(out, *n)
				next = append(next, target)
			}
		}
		frontier = next
	}
	return out, nil
}
