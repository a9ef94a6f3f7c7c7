// Package memory provides an in-process GraphStorage engine. It backs tests
// and single-node deployments that do not need durable graph state.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

type passage struct {
	id     string
	nodeID string
	text   string
	vector []float32
}

// Store is an in-memory GraphStorage implementation. A single mutex
// serializes all mutations, which also serializes upserts per node ID.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*store.Node
	edges    map[string]*store.Edge // keyed src|kind|dst
	passages map[string]*passage    // keyed nodeID|contentHash

	// localRadius bounds the neighborhood local-mode retrieval may reach
	// from the best directly matched entity.
	localRadius int
}

// New returns an empty in-memory graph store.
func New() *Store {
	return &Store{
		nodes:       make(map[string]*store.Node),
		edges:       make(map[string]*store.Edge),
		passages:    make(map[string]*passage),
		localRadius: 2,
	}
}

func edgeKey(src string, kind schema.RelKind, dst string) string {
	return src + "|" + string(kind) + "|" + dst
}

// UpsertNode creates the node or merges fields into the existing record.
func (s *Store) UpsertNode(ctx context.Context, id string, kind schema.Kind, fields schema.Record) error {
	if id == "" {
		return fmt.Errorf("upsert node: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.nodes[id]
	if !ok {
		merged := schema.Record{}
		for k, v := range fields {
			merged[k] = v
		}
		s.nodes[id] = &store.Node{ID: id, Kind: kind, Fields: merged}
		return nil
	}

	if existing.Kind != kind {
		return &schema.ValidationError{Kind: kind, Field: "id", Value: id, Reason: "node already exists with a different kind"}
	}
	for k, v := range fields {
		existing.Fields[k] = v
	}
	return nil
}

// UpsertEdge creates the edge or merges fields into it. At most one edge
// exists per (src, dst, kind).
func (s *Store) UpsertEdge(ctx context.Context, src, dst string, kind schema.RelKind, fields schema.Record) error {
	if !schema.ValidRelKind(kind) {
		return &schema.SchemaError{Field: "relationship", Value: string(kind), Reason: "unknown relationship kind"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey(src, kind, dst)
	existing, ok := s.edges[key]
	if !ok {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		merged := schema.Record{}
		for k, v := range fields {
			merged[k] = v
		}
		s.edges[key] = &store.Edge{ID: id, Src: src, Dst: dst, Kind: kind, Fields: merged}
		return nil
	}
	for k, v := range fields {
		existing.Fields[k] = v
	}
	return nil
}

// GetNode returns the node with the given ID or store.ErrNotFound.
func (s *Store) GetNode(ctx context.Context, id string) (*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyNode(n), nil
}

// Edges returns edges of the given kind touching nodeID in the direction.
func (s *Store) Edges(ctx context.Context, nodeID string, kind schema.RelKind, dir store.Direction) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Edge
	for _, e := range s.edges {
		if e.Kind != kind {
			continue
		}
		if dir == store.DirectionOut && e.Src != nodeID {
			continue
		}
		if dir == store.DirectionIn && e.Dst != nodeID {
			continue
		}
		out = append(out, *copyEdge(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dst < out[j].Dst
	})
	return out, nil
}

// Traverse follows edges of one kind from nodeID up to maxHops, returning
// visited nodes in breadth-first order, excluding the start node.
func (s *Store) Traverse(ctx context.Context, nodeID string, kind schema.RelKind, dir store.Direction, maxHops int) ([]store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[nodeID]; !ok {
		return nil, store.ErrNotFound
	}

	visited := map[string]bool{nodeID: true}
	frontier := []string{nodeID}
	var out []store.Node

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, target := range s.neighborsLocked(id, kind, dir) {
				if visited[target] {
					continue
				}
				visited[target] = true
				next = append(next, target)
				if n, ok := s.nodes[target]; ok {
					out = append(out, *copyNode(n))
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	return out, nil
}

func (s *Store) neighborsLocked(nodeID string, kind schema.RelKind, dir store.Direction) []string {
	var out []string
	for _, e := range s.edges {
		if kind != "" && e.Kind != kind {
			continue
		}
		switch dir {
		case store.DirectionOut:
			if e.Src == nodeID {
				out = append(out, e.Dst)
			}
		case store.DirectionIn:
			if e.Dst == nodeID {
				out = append(out, e.Src)
			}
		}
	}
	sort.Strings(out)
	return out
}

// anyNeighborsLocked ignores kind and direction: used for neighborhood
// bounding in local retrieval.
func (s *Store) anyNeighborsLocked(nodeID string) []string {
	var out []string
	for _, e := range s.edges {
		if e.Src == nodeID {
			out = append(out, e.Dst)
		}
		if e.Dst == nodeID {
			out = append(out, e.Src)
		}
	}
	return out
}

// SavePassage stores a retrievable text fragment with its vector. The same
// (nodeID, text) pair is stored once.
func (s *Store) SavePassage(ctx context.Context, nodeID, text string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nodeID + "|" + embed.Key(text)
	if _, ok := s.passages[key]; ok {
		return nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.passages[key] = &passage{id: id, nodeID: nodeID, text: text, vector: vec}
	return nil
}

// SimilaritySearch ranks passages by cosine similarity to the query vector.
// Local mode restricts candidates to the bounded neighborhood of the best
// directly matched entity; naive and global search the full passage set,
// which lets global surface thematically similar but disconnected entities.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, mode store.Mode, topK int) ([]store.Passage, error) {
	if !store.ValidMode(mode) {
		return nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := s.rankLocked(query)
	if mode == store.ModeLocal && len(ranked) > 0 {
		allowed := s.neighborhoodLocked(ranked[0].NodeID, s.localRadius)
		filtered := ranked[:0:0]
		for _, p := range ranked {
			if allowed[p.NodeID] {
				filtered = append(filtered, p)
			}
		}
		ranked = filtered
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

func (s *Store) rankLocked(query []float32) []store.Passage {
	out := make([]store.Passage, 0, len(s.passages))
	for _, p := range s.passages {
		out = append(out, store.Passage{
			ID:     p.id,
			NodeID: p.nodeID,
			Text:   p.text,
			Score:  cosine(query, p.vector),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) neighborhoodLocked(nodeID string, radius int) map[string]bool {
	allowed := map[string]bool{nodeID: true}
	frontier := []string{nodeID}
	for hop := 0; hop < radius && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range s.anyNeighborsLocked(id) {
				if !allowed[nb] {
					allowed[nb] = true
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}
	return allowed
}

// CurrentVersion returns the drawing holding a current status for the
// drawing number, or store.ErrNotFound.
func (s *Store) CurrentVersion(ctx context.Context, drawingNumber string) (*store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*store.Node
	for _, n := range s.nodes {
		if n.Kind != schema.KindDrawing {
			continue
		}
		if n.Fields["drawing_number"] != drawingNumber {
			continue
		}
		if schema.DrawingStatus(n.Fields["status"]).Current() {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, store.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return copyNode(candidates[0]), nil
}

// VersionChain returns every version of the drawing number newest-first by
// following SUPERSEDES edges from the current version. A cycle in the chain
// is reported as a ValidationError.
func (s *Store) VersionChain(ctx context.Context, drawingNumber string) ([]store.Node, error) {
	head, err := s.CurrentVersion(ctx, drawingNumber)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

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
		n, ok := s.nodes[cur]
		if !ok {
			break
		}
		chain = append(chain, *copyNode(n))

		next := ""
		for _, e := range s.edges {
			if e.Kind == schema.RelSupersedes && e.Src == cur {
				next = e.Dst
				break
			}
		}
		cur = next
	}
	return chain, nil
}

func copyNode(n *store.Node) *store.Node {
	return &store.Node{ID: n.ID, Kind: n.Kind, Fields: cloneRecord(n.Fields)}
}

func copyEdge(e *store.Edge) *store.Edge {
	return &store.Edge{ID: e.ID, Src: e.Src, Dst: e.Dst, Kind: e.Kind, Fields: cloneRecord(e.Fields)}
}

func cloneRecord(r schema.Record) schema.Record {
	out := make(schema.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
