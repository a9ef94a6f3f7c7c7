package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
	"github.com/planrag/backend/pkg/store/memory"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	s.calls++
	v := make([]float32, 4)
	for i, b := range input {
		v[i%4] += float32(b)
	}
	return v, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *memory.Store) {
	t.Helper()
	s := memory.New()
	cache := embed.NewCache(embed.NewCacheParams{
		Embedder: &stubEmbedder{},
		Store:    embed.NewMemStore(),
	})
	p := NewPipeline(PipelineParams{Store: s, Cache: cache})
	return p, s
}

func TestEnrichDocumentHeaderOrder(t *testing.T) {
	md := Metadata{
		Discipline:    "A",
		Title:         "Ground Floor Plan",
		DrawingNumber: "A-101",
		Date:          "2025-11-14",
		Version:       "3",
	}
	got := EnrichDocument("body text", md)
	want := "Drawing Number: A-101\nVersion: 3\nTitle: Ground Floor Plan\nDate: 2025-11-14\nDiscipline: A\n\nbody text"
	if got != want {
		t.Fatalf("header mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestEnrichDocumentOmitsAbsentFields(t *testing.T) {
	got := EnrichDocument("body", Metadata{DrawingNumber: "A-101", Discipline: "A"})
	want := "Drawing Number: A-101\nDiscipline: A\n\nbody"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if EnrichDocument("body", Metadata{}) != "body" {
		t.Fatal("empty metadata must leave text unchanged")
	}
}

func TestEnrichDocumentDeterministic(t *testing.T) {
	md := Metadata{DrawingNumber: "A-101", Version: "3", Title: "Plan"}
	if EnrichDocument("x", md) != EnrichDocument("x", md) {
		t.Fatal("identical metadata must produce identical enriched text")
	}
}

func TestIngestRejectsUnknownDiscipline(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Ingest(context.Background(), "text", Metadata{
		ID: "A-101-v1", DrawingNumber: "A-101", Discipline: "X",
	}, IngestOptions{})
	var se *schema.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Field != "discipline" {
		t.Fatalf("wrong field: %s", se.Field)
	}
}

func TestIngestRejectsUnknownStatus(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Ingest(context.Background(), "text", Metadata{
		ID: "A-101-v1", Status: "finalized",
	}, IngestOptions{})
	var se *schema.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestIngestSupersedesPriorVersion(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "second revision", Metadata{
		ID: "A-101-v2", DrawingNumber: "A-101", Version: "2", Status: "issued",
	}, IngestOptions{}); err != nil {
		t.Fatal(err)
	}

	id, err := p.Ingest(ctx, "This revision supersedes A-101 Revision 2.", Metadata{
		ID: "A-101-v3", DrawingNumber: "A-101", Version: "3", Status: "issued",
	}, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if id != "A-101-v3" {
		t.Fatalf("unexpected document ID %q", id)
	}

	prior, err := s.GetNode(ctx, "A-101-v2")
	if err != nil {
		t.Fatal(err)
	}
	if prior.Fields["status"] != string(schema.StatusSuperseded) {
		t.Fatalf("prior version not superseded: %v", prior.Fields)
	}

	edges, err := s.Edges(ctx, "A-101-v3", schema.RelSupersedes, store.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Dst != "A-101-v2" {
		t.Fatalf("expected exactly one SUPERSEDES(v3->v2) edge, got %v", edges)
	}

	cur, err := s.CurrentVersion(ctx, "A-101")
	if err != nil {
		t.Fatal(err)
	}
	if cur.ID != "A-101-v3" {
		t.Fatalf("current version is %s, want A-101-v3", cur.ID)
	}
}

func TestIngestIdempotent(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	md := Metadata{ID: "A-101-v3", DrawingNumber: "A-101", Version: "3", Status: "issued"}
	for i := 0; i < 2; i++ {
		if _, err := p.Ingest(ctx, "same text", md, IngestOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	edges, err := s.Edges(ctx, "A-101-v3", schema.RelSupersedes, store.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Fatalf("re-ingest must not self-supersede: %v", edges)
	}

	passages, err := s.SimilaritySearch(ctx, []float32{1, 1, 1, 1}, store.ModeNaive, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 1 {
		t.Fatalf("re-ingest duplicated passages: %d", len(passages))
	}
}

func TestIngestDisableSupersession(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	p.Ingest(ctx, "v2", Metadata{ID: "A-101-v2", DrawingNumber: "A-101", Status: "issued"}, IngestOptions{})
	p.Ingest(ctx, "v3", Metadata{ID: "A-101-v3", DrawingNumber: "A-101", Status: "issued"},
		IngestOptions{DisableSupersession: true})

	edges, _ := s.Edges(ctx, "A-101-v3", schema.RelSupersedes, store.DirectionOut)
	if len(edges) != 0 {
		t.Fatal("supersession inference ran despite being disabled")
	}

	prior, _ := s.GetNode(ctx, "A-101-v2")
	if prior.Fields["status"] != "issued" {
		t.Fatalf("prior status changed: %v", prior.Fields)
	}
}

func TestChunkTextRespectsBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The corridor walls shall achieve a one hour fire resistance rating. ")
	}
	chunks, err := chunkText(b.String(), "o200k_base", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Fatal("empty chunk emitted")
		}
	}
}

func TestSplitSentencesNumberedList(t *testing.T) {
	got := splitSentences("1. GENERAL NOTES\n\n2. All dimensions in millimeters.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(got), got)
	}
	if got[0] != "1. GENERAL NOTES" {
		t.Fatalf("numbered heading split: %q", got[0])
	}
}
