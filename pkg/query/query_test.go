package query

import (
	"context"
	"strings"
	"testing"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/enrich"
	"github.com/planrag/backend/pkg/store"
	"github.com/planrag/backend/pkg/store/memory"
)

type fakeClient struct {
	answer        string
	classifyLabel string
	classifyErr   error
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if strings.Contains(prompt, "Classify the intent") {
		if f.classifyErr != nil {
			return "", f.classifyErr
		}
		return f.classifyLabel, nil
	}
	return f.answer, nil
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return nil
}

func (f *fakeClient) GenerateStream(ctx context.Context, prompt string, opts ...ai.GenerateOption) (<-chan string, error) {
	ch := make(chan string, 3)
	ch <- "part one "
	ch <- "part two "
	ch <- "part three"
	close(ch)
	return ch, nil
}

func (f *fakeClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	v := make([]float32, 8)
	for i, b := range input {
		v[i%8] += float32(b) / 255
	}
	return v, nil
}

func (f *fakeClient) ResetMetrics()               {}
func (f *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newTestOrchestrator(t *testing.T, client *fakeClient) (*Orchestrator, *memory.Store, *enrich.Pipeline) {
	t.Helper()
	s := memory.New()
	cache := embed.NewCache(embed.NewCacheParams{
		Embedder: client,
		Store:    embed.NewMemStore(),
	})
	o := NewOrchestrator(OrchestratorParams{
		Client: client,
		Cache:  cache,
		Store:  s,
	})
	p := enrich.NewPipeline(enrich.PipelineParams{Store: s, Cache: cache})
	return o, s, p
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name  string
		label string
		err   error
		want  Intent
	}{
		{name: "exact label", label: "impact_analysis", want: IntentImpactAnalysis},
		{name: "label in sentence", label: "The intent is version_comparison.", want: IntentVersionComparison},
		{name: "first line wins", label: "code_compliance\nfactual", want: IntentCodeCompliance},
		{name: "uppercase", label: "MULTI_HOP", want: IntentMultiHop},
		{name: "unrecognized falls back", label: "poetry_generation", want: IntentFactual},
		{name: "empty falls back", label: "", want: IntentFactual},
		{name: "call error falls back", err: context.DeadlineExceeded, want: IntentFactual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{classifyLabel: tt.label, classifyErr: tt.err}
			got := ClassifyIntent(context.Background(), client, "some question")
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindingDefaults(t *testing.T) {
	if b := BindingFor(IntentCodeCompliance); b.Mode != store.ModeLocal {
		t.Fatalf("code_compliance must default to local, got %s", b.Mode)
	}
	if b := BindingFor(IntentImpactAnalysis); b.Mode != store.ModeGlobal {
		t.Fatalf("impact_analysis must default to global, got %s", b.Mode)
	}
	if b := BindingFor(IntentMultiHop); b.Mode != store.ModeGlobal {
		t.Fatalf("multi_hop must default to global, got %s", b.Mode)
	}
	if b := BindingFor(Intent("nonsense")); b.Template != ai.FactualPrompt {
		t.Fatal("unknown intent must map to the factual binding")
	}
}

func TestAssembleContextNoPassages(t *testing.T) {
	if got := assembleContext(nil, 100); got != ai.NoContextMarker {
		t.Fatalf("zero passages must yield the no-context marker, got %q", got)
	}
}

func TestAssembleContextCapsPassageCount(t *testing.T) {
	var passages []store.Passage
	for i := 0; i < 15; i++ {
		passages = append(passages, store.Passage{Text: "word"})
	}
	got := assembleContext(passages, 0)
	if n := CountTokens(got); n != maxContextPassages {
		t.Fatalf("expected %d passages in context, got %d tokens", maxContextPassages, n)
	}
}

func TestAssembleContextTruncatesWholeWords(t *testing.T) {
	passages := []store.Passage{
		{Text: "one two three four five six seven eight nine ten"},
	}
	got := assembleContext(passages, 4)
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("missing truncation marker: %q", got)
	}
	body := strings.TrimSpace(strings.TrimSuffix(got, TruncationMarker))
	if body != "one two three four" {
		t.Fatalf("unexpected truncation: %q", body)
	}
}

func TestAssembleContextNeverSplitsHeaderLine(t *testing.T) {
	passages := []store.Passage{
		{Text: "intro words here\nDrawing Number: A-101 with trailing detail words\nbody"},
	}
	got := assembleContext(passages, 5)
	if strings.Contains(got, "Drawing Number") && !strings.Contains(got, "detail words") {
		t.Fatalf("header line was split: %q", got)
	}
}

func TestTokenUsage(t *testing.T) {
	u := &TokenUsage{}
	u.Add("three word prompt", "two words")
	u.Add("one", "")

	snap := u.Snapshot()
	if snap.PromptTokens != 4 || snap.ResponseTokens != 2 || snap.TotalTokens != 6 || snap.Calls != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	u.Reset()
	if snap := u.Snapshot(); snap.TotalTokens != 0 || snap.Calls != 0 {
		t.Fatalf("reset did not zero the counters: %+v", snap)
	}
}

func TestQueryAccumulatesUsage(t *testing.T) {
	client := &fakeClient{answer: "the answer", classifyLabel: "factual"}
	o, _, p := newTestOrchestrator(t, client)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "Lobby walls are rated for one hour.", enrich.Metadata{
		ID: "A-101-v1", DrawingNumber: "A-101",
	}, enrich.IngestOptions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Query(ctx, "What is the lobby wall rating?", Options{}); err != nil {
		t.Fatal(err)
	}
	if snap := o.Usage().Snapshot(); snap.TotalTokens == 0 || snap.Calls != 1 {
		t.Fatalf("usage not accumulated: %+v", snap)
	}
}

func TestQueryStreamConcatenatesInOrder(t *testing.T) {
	client := &fakeClient{classifyLabel: "factual"}
	o, _, p := newTestOrchestrator(t, client)
	ctx := context.Background()

	p.Ingest(ctx, "some text", enrich.Metadata{ID: "A-101-v1"}, enrich.IngestOptions{})

	r, err := o.Query(ctx, "anything", Options{Stream: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.Answer != "part one part two part three" {
		t.Fatalf("fragments out of order: %q", r.Answer)
	}
}

func TestQueryLatestVersionEndToEnd(t *testing.T) {
	client := &fakeClient{answer: "A-101 version 3 is current; version 2 is superseded."}
	o, _, p := newTestOrchestrator(t, client)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "Second revision of the ground floor plan.", enrich.Metadata{
		ID: "A-101-v2", DrawingNumber: "A-101", Version: "2", Status: "issued",
	}, enrich.IngestOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ingest(ctx, "This revision supersedes A-101 Revision 2.", enrich.Metadata{
		ID: "A-101-v3", DrawingNumber: "A-101", Version: "3", Status: "issued",
	}, enrich.IngestOptions{}); err != nil {
		t.Fatal(err)
	}

	r, err := o.Query(ctx, "What is the latest version of drawing A-101?", Options{
		Intent: IntentVersionComparison,
		Mode:   store.ModeGlobal,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Stage != StageResult {
		t.Fatalf("query ended in stage %s", r.Stage)
	}
	if len(r.Passages) == 0 {
		t.Fatal("global retrieval returned no passages")
	}
	if len(r.VersionHistory) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(r.VersionHistory))
	}
	if r.VersionHistory[0].ID != "A-101-v3" || r.VersionHistory[0].Status != "issued" {
		t.Fatalf("newest entry wrong: %+v", r.VersionHistory[0])
	}
	if r.VersionHistory[1].ID != "A-101-v2" || r.VersionHistory[1].Status != "superseded" {
		t.Fatalf("superseded entry wrong: %+v", r.VersionHistory[1])
	}
}

func TestAnalyzeImpactWalksTwoHops(t *testing.T) {
	client := &fakeClient{answer: "impact analysis"}
	o, s, _ := newTestOrchestrator(t, client)
	ctx := context.Background()

	s.UpsertNode(ctx, "A-101-v3", "Drawing", map[string]string{"drawing_number": "A-101", "status": "issued"})
	for _, id := range []string{"S-203", "M-101", "WA-02"} {
		s.UpsertNode(ctx, id, "Drawing", map[string]string{})
	}
	s.UpsertEdge(ctx, "A-101-v3", "S-203", "AFFECTS", map[string]string{"severity": "major"})
	s.UpsertEdge(ctx, "S-203", "M-101", "AFFECTS", map[string]string{"severity": "moderate"})
	s.UpsertEdge(ctx, "M-101", "WA-02", "AFFECTS", map[string]string{"severity": "minor"})

	r, err := o.AnalyzeImpact(ctx, "Moving the lobby wall on A-101-v3")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Impacts) != 2 {
		t.Fatalf("expected 2 impacts within two hops, got %d", len(r.Impacts))
	}
	if r.Impacts[0].ID != "S-203" || r.Impacts[0].Severity != "major" || r.Impacts[0].Hops != 1 {
		t.Fatalf("first impact wrong: %+v", r.Impacts[0])
	}
	if r.Impacts[1].ID != "M-101" || r.Impacts[1].Hops != 2 {
		t.Fatalf("second impact wrong: %+v", r.Impacts[1])
	}
}

func TestCheckComplianceReportsRequires(t *testing.T) {
	client := &fakeClient{answer: "compliant"}
	o, s, _ := newTestOrchestrator(t, client)
	ctx := context.Background()

	s.UpsertNode(ctx, "door-204", "Component", map[string]string{})
	s.UpsertNode(ctx, "IBC-1010", "Requirement", map[string]string{"section": "1010.1"})
	s.UpsertEdge(ctx, "door-204", "IBC-1010", "REQUIRES", map[string]string{"compliance_status": "compliant"})

	r, err := o.CheckCompliance(ctx, "door-204", []string{"IBC egress width"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Compliance) != 1 {
		t.Fatalf("expected 1 compliance entry, got %d", len(r.Compliance))
	}
	entry := r.Compliance[0]
	if entry.RequirementID != "IBC-1010" || entry.Status != "compliant" || entry.CodeSection != "1010.1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}
