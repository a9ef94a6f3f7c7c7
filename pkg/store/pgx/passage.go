package pgx

import (
	"context"
	"fmt"
	"strconv"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/planrag/backend/internal/util"
	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/store"
)

// SavePassage stores a text chunk and its embedding under a node. Saving the
// same text for the same node again is a no-op.
func (s *GraphDBStorage) SavePassage(ctx context.Context, nodeID, text string, embedding []float32) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO passages (id, node_id, content_hash, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (node_id, content_hash) DO NOTHING`,
		id, nodeID, embed.Key(text), util.SanitizePostgresText(text), pgvector.NewVector(embedding))
	return err
}

// SimilaritySearch ranks passages by cosine similarity to query. Global and
// naive modes search every passage; local mode restricts results to the graph
// neighborhood of the best-matched node.
func (s *GraphDBStorage) SimilaritySearch(ctx context.Context, query []float32, mode store.Mode, topK int) ([]store.Passage, error) {
	if !store.ValidMode(mode) {
		return nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
	if topK <= 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(query)

	if mode != store.ModeLocal {
		return s.rankPassages(ctx, vec, nil, topK)
	}

	best, err := s.rankPassages(ctx, vec, nil, 1)
	if err != nil || len(best) == 0 {
		return best, err
	}
	neighborhood, err := s.neighborhood(ctx, best[0].NodeID)
	if err != nil {
		return nil, err
	}
	return s.rankPassages(ctx, vec, neighborhood, topK)
}

func (s *GraphDBStorage) rankPassages(ctx context.Context, vec pgvector.Vector, nodeIDs []string, topK int) ([]store.Passage, error) {
	query := `
		SELECT id, node_id, content, 1 - (embedding <=> $1) AS score
		FROM passages`
	args := []any{vec}
	if nodeIDs != nil {
		query += ` WHERE node_id = ANY($2)`
		args = append(args, nodeIDs)
	}
	query += ` ORDER BY embedding <=> $1, id LIMIT ` + strconv.Itoa(topK)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Passage
	for rows.Next() {
		var p store.Passage
		if err := rows.Scan(&p.ID, &p.NodeID, &p.Text, &p.Score); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// neighborhood collects node IDs within localRadius hops of center, following
// edges of any kind in both directions.
func (s *GraphDBStorage) neighborhood(ctx context.Context, center string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		WITH RECURSIVE hood (id, depth) AS (
			SELECT $1::text, 0
			UNION
			SELECT CASE WHEN e.src = h.id THEN e.dst ELSE e.src END, h.depth + 1
			FROM edges e
			JOIN hood h ON e.src = h.id OR e.dst = h.id
			WHERE h.depth < $2
		)
		SELECT DISTINCT id FROM hood`,
		center, s.localRadius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
