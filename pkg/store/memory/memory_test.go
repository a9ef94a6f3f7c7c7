package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

func TestUpsertNodeIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	fields := schema.Record{"drawing_number": "A-101", "version": "2", "status": "issued"}
	if err := s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, fields); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, fields); err != nil {
		t.Fatal(err)
	}

	n, err := s.GetNode(ctx, "A-101-v2")
	if err != nil {
		t.Fatal(err)
	}
	if n.Fields["version"] != "2" {
		t.Fatalf("unexpected fields: %v", n.Fields)
	}

	count := 0
	for _, id := range []string{"A-101-v2"} {
		if _, err := s.GetNode(ctx, id); err == nil {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one node, got %d", count)
	}
}

func TestUpsertNodeUpdatesStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, schema.Record{"status": "issued"})
	s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, schema.Record{"status": "superseded"})

	n, _ := s.GetNode(ctx, "A-101-v2")
	if n.Fields["status"] != "superseded" {
		t.Fatalf("status not updated: %v", n.Fields)
	}
}

func TestUpsertNodeKindConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "X-1", schema.KindDrawing, schema.Record{})
	err := s.UpsertNode(ctx, "X-1", schema.KindComponent, schema.Record{})
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError on kind conflict, got %v", err)
	}
}

func TestUpsertEdgeNoDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v3", schema.KindDrawing, schema.Record{})
	s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, schema.Record{})

	for i := 0; i < 3; i++ {
		if err := s.UpsertEdge(ctx, "A-101-v3", "A-101-v2", schema.RelSupersedes, schema.Record{}); err != nil {
			t.Fatal(err)
		}
	}

	edges, err := s.Edges(ctx, "A-101-v3", schema.RelSupersedes, store.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(edges))
	}
}

func TestGetNodeNotFound(t *testing.T) {
	s := New()
	_, err := s.GetNode(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTraverseAffectsTwoHops(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"A-101-v3", "S-203", "M-101", "WA-02"} {
		s.UpsertNode(ctx, id, schema.KindDrawing, schema.Record{})
	}
	s.UpsertEdge(ctx, "A-101-v3", "S-203", schema.RelAffects, schema.Record{"severity": "major"})
	s.UpsertEdge(ctx, "S-203", "M-101", schema.RelAffects, schema.Record{"severity": "moderate"})
	s.UpsertEdge(ctx, "M-101", "WA-02", schema.RelAffects, schema.Record{"severity": "minor"})

	nodes, err := s.Traverse(ctx, "A-101-v3", schema.RelAffects, store.DirectionOut, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("two hops must reach 2 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != "S-203" || nodes[1].ID != "M-101" {
		t.Fatalf("unexpected traversal order: %v, %v", nodes[0].ID, nodes[1].ID)
	}
}

func TestVersionChainNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	versions := []struct {
		id, version, status string
	}{
		{"A-101-v1", "1", "superseded"},
		{"A-101-v2", "2", "superseded"},
		{"A-101-v3", "3", "issued"},
	}
	for _, v := range versions {
		s.UpsertNode(ctx, v.id, schema.KindDrawing, schema.Record{
			"drawing_number": "A-101", "version": v.version, "status": v.status,
		})
	}
	s.UpsertEdge(ctx, "A-101-v3", "A-101-v2", schema.RelSupersedes, schema.Record{})
	s.UpsertEdge(ctx, "A-101-v2", "A-101-v1", schema.RelSupersedes, schema.Record{})

	chain, err := s.VersionChain(ctx, "A-101")
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(chain))
	}
	for i, want := range []string{"A-101-v3", "A-101-v2", "A-101-v1"} {
		if chain[i].ID != want {
			t.Fatalf("chain[%d] = %s, want %s", i, chain[i].ID, want)
		}
	}
}

func TestVersionChainCycleDetected(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v1", schema.KindDrawing, schema.Record{"drawing_number": "A-101", "status": "issued"})
	s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, schema.Record{"drawing_number": "A-101", "status": "superseded"})
	s.UpsertEdge(ctx, "A-101-v1", "A-101-v2", schema.RelSupersedes, schema.Record{})
	s.UpsertEdge(ctx, "A-101-v2", "A-101-v1", schema.RelSupersedes, schema.Record{})

	_, err := s.VersionChain(ctx, "A-101")
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for cycle, got %v", err)
	}
}

func TestCurrentVersion(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v2", schema.KindDrawing, schema.Record{"drawing_number": "A-101", "status": "superseded"})
	s.UpsertNode(ctx, "A-101-v3", schema.KindDrawing, schema.Record{"drawing_number": "A-101", "status": "issued"})

	n, err := s.CurrentVersion(ctx, "A-101")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "A-101-v3" {
		t.Fatalf("expected A-101-v3 current, got %s", n.ID)
	}

	if _, err := s.CurrentVersion(ctx, "Z-999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown number, got %v", err)
	}
}

// Two disconnected graph components share only thematic similarity: global
// mode must surface the disconnected passage, local mode must not.
func TestLocalVsGlobalRetrieval(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Component 1: the directly matched drawing and its neighbor.
	s.UpsertNode(ctx, "A-101-v3", schema.KindDrawing, schema.Record{})
	s.UpsertNode(ctx, "S-203", schema.KindDrawing, schema.Record{})
	s.UpsertEdge(ctx, "A-101-v3", "S-203", schema.RelAffects, schema.Record{})

	// Component 2: no edges at all, thematically similar text.
	s.UpsertNode(ctx, "FP-500", schema.KindDrawing, schema.Record{})

	// Vectors chosen so A-101's passage matches best, FP-500 second.
	s.SavePassage(ctx, "A-101-v3", "lobby fire rating plan", []float32{1, 0, 0})
	s.SavePassage(ctx, "S-203", "beam modifications", []float32{0.8, 0.1, 0})
	s.SavePassage(ctx, "FP-500", "fire protection riser", []float32{0.9, 0.05, 0})

	query := []float32{1, 0, 0}

	global, err := s.SimilaritySearch(ctx, query, store.ModeGlobal, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !containsNode(global, "FP-500") {
		t.Fatal("global mode must surface the disconnected entity")
	}

	local, err := s.SimilaritySearch(ctx, query, store.ModeLocal, 5)
	if err != nil {
		t.Fatal(err)
	}
	if containsNode(local, "FP-500") {
		t.Fatal("local mode must not surface entities outside the matched neighborhood")
	}
	if !containsNode(local, "S-203") {
		t.Fatal("local mode must keep direct neighbors")
	}
}

func TestSavePassageDedupes(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v3", schema.KindDrawing, schema.Record{})
	for i := 0; i < 2; i++ {
		s.SavePassage(ctx, "A-101-v3", "same text", []float32{1})
	}

	got, err := s.SimilaritySearch(ctx, []float32{1}, store.ModeNaive, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate passage stored: %d", len(got))
	}
}

func containsNode(ps []store.Passage, nodeID string) bool {
	for _, p := range ps {
		if p.NodeID == nodeID {
			return true
		}
	}
	return false
}
