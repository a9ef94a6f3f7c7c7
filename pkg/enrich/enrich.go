package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

// Metadata is the structured record supplied alongside extracted document
// text. Field extraction upstream is best-effort, so every value here is
// validated against the schema registry before any graph mutation.
type Metadata struct {
	ID            string `json:"id"`
	Kind          string `json:"kind,omitempty"`
	DrawingNumber string `json:"drawing_number,omitempty"`
	Version       string `json:"version,omitempty"`
	Title         string `json:"title,omitempty"`
	Date          string `json:"date,omitempty"`
	Discipline    string `json:"discipline,omitempty"`
	Status        string `json:"status,omitempty"`
}

// maxChainLength bounds the supersession cycle check.
const maxChainLength = 10000

// IngestOptions control a single Ingest call.
type IngestOptions struct {
	// DisableSupersession skips the automatic SUPERSEDES inference from
	// drawing_number equality. Use it when two unrelated drawings share a
	// number by data error.
	DisableSupersession bool
}

// Pipeline turns (text, metadata) pairs into enriched documents, graph
// entities and embedded passages.
type Pipeline struct {
	store     store.GraphStorage
	cache     *embed.Cache
	extractor Extractor
	encoder   string
	maxTokens int
}

type PipelineParams struct {
	Store     store.GraphStorage
	Cache     *embed.Cache
	Extractor Extractor
	Encoder   string // tiktoken encoding name, default o200k_base
	MaxTokens int    // per-chunk token budget, default 600
}

func NewPipeline(params PipelineParams) *Pipeline {
	p := &Pipeline{
		store:     params.Store,
		cache:     params.Cache,
		extractor: params.Extractor,
		encoder:   params.Encoder,
		maxTokens: params.MaxTokens,
	}
	if p.extractor == nil {
		p.extractor = NopExtractor{}
	}
	if p.encoder == "" {
		p.encoder = "o200k_base"
	}
	if p.maxTokens <= 0 {
		p.maxTokens = 600
	}
	return p
}

// EnrichDocument prepends the canonical metadata header to body text. Field
// order is fixed and absent fields are omitted, so identical metadata always
// produces identical enriched text and identical embedding-cache keys.
func EnrichDocument(text string, md Metadata) string {
	header := headerFor(md)
	if header == "" {
		return text
	}
	return header + "\n\n" + text
}

func headerFor(md Metadata) string {
	var parts []string
	if md.DrawingNumber != "" {
		parts = append(parts, "Drawing Number: "+md.DrawingNumber)
	}
	if md.Version != "" {
		parts = append(parts, "Version: "+md.Version)
	}
	if md.Title != "" {
		parts = append(parts, "Title: "+md.Title)
	}
	if md.Date != "" {
		parts = append(parts, "Date: "+md.Date)
	}
	if md.Discipline != "" {
		parts = append(parts, "Discipline: "+md.Discipline)
	}
	return strings.Join(parts, "\n")
}

func validateMetadata(md Metadata) (schema.Kind, error) {
	if md.ID == "" {
		return "", &schema.SchemaError{Field: "id", Reason: "metadata id is required"}
	}
	kind := schema.KindDrawing
	if md.Kind != "" {
		kind = schema.Kind(md.Kind)
		if _, ok := schema.Registry[kind]; !ok {
			return "", &schema.SchemaError{Field: "kind", Value: md.Kind, Reason: "unknown entity kind"}
		}
	}
	if md.Discipline != "" && !schema.ValidDiscipline(schema.Discipline(md.Discipline)) {
		return "", &schema.SchemaError{Kind: kind, Field: "discipline", Value: md.Discipline, Reason: "unknown discipline code"}
	}
	if md.Status != "" && !schema.ValidDrawingStatus(schema.DrawingStatus(md.Status)) {
		return "", &schema.SchemaError{Kind: kind, Field: "status", Value: md.Status, Reason: "unknown status code"}
	}
	return kind, nil
}

func (md Metadata) fields() schema.Record {
	r := schema.Record{}
	if md.DrawingNumber != "" {
		r["drawing_number"] = md.DrawingNumber
	}
	if md.Version != "" {
		r["version"] = md.Version
	}
	if md.Title != "" {
		r["title"] = md.Title
	}
	if md.Date != "" {
		r["date"] = md.Date
	}
	if md.Discipline != "" {
		r["discipline"] = md.Discipline
	}
	if md.Status != "" {
		r["status"] = md.Status
	}
	return r
}

// Ingest enriches the document, upserts its entity, enforces the
// supersession chain, extracts further graph content and embeds the text as
// retrievable passages. Re-ingesting the same (text, metadata) pair applies
// no additional mutation.
func (p *Pipeline) Ingest(ctx context.Context, text string, md Metadata, opts IngestOptions) (string, error) {
	kind, err := validateMetadata(md)
	if err != nil {
		return "", err
	}

	var prior *store.Node
	if kind == schema.KindDrawing && md.DrawingNumber != "" && !opts.DisableSupersession {
		prior, err = p.store.CurrentVersion(ctx, md.DrawingNumber)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		if prior != nil && prior.ID == md.ID {
			prior = nil
		}
	}

	if err := p.store.UpsertNode(ctx, md.ID, kind, md.fields()); err != nil {
		return "", err
	}

	if prior != nil {
		if err := p.supersede(ctx, md, prior); err != nil {
			return "", err
		}
	}

	enriched := EnrichDocument(text, md)

	extraction, err := p.extractor.Extract(ctx, enriched)
	if err != nil {
		return "", fmt.Errorf("graph extraction: %w", err)
	}
	if err := p.applyExtraction(ctx, md.ID, extraction); err != nil {
		return "", err
	}

	if err := p.embedPassages(ctx, md, text); err != nil {
		return "", err
	}

	return md.ID, nil
}

// supersede links the new version to the prior current one and flips the
// prior status. This is the only place version-chain invariants are applied.
func (p *Pipeline) supersede(ctx context.Context, md Metadata, prior *store.Node) error {
	reachable, err := p.store.Traverse(ctx, prior.ID, schema.RelSupersedes, store.DirectionOut, maxChainLength)
	if err != nil {
		return err
	}
	for _, n := range reachable {
		if n.ID == md.ID {
			return &schema.ValidationError{
				Kind: schema.KindDrawing, Field: "drawing_number", Value: md.DrawingNumber,
				Reason: fmt.Sprintf("superseding %s would close a cycle", prior.ID),
			}
		}
	}

	if err := p.store.UpsertEdge(ctx, md.ID, prior.ID, schema.RelSupersedes, schema.Record{}); err != nil {
		return err
	}
	if err := p.store.UpsertNode(ctx, prior.ID, schema.KindDrawing, schema.Record{
		"status": string(schema.StatusSuperseded),
	}); err != nil {
		return err
	}

	logger.Info("Drawing version superseded",
		"drawing_number", md.DrawingNumber,
		"new", md.ID,
		"prior", prior.ID)
	return nil
}

func (p *Pipeline) applyExtraction(ctx context.Context, docID string, ex *Extraction) error {
	entities, relations := filterExtraction(ex)
	for _, ent := range entities {
		if ent.ID == docID {
			continue
		}
		if err := p.store.UpsertNode(ctx, ent.ID, schema.Kind(ent.Kind), schema.Record(ent.Fields)); err != nil {
			return err
		}
	}
	for _, rel := range relations {
		if err := p.store.UpsertEdge(ctx, rel.Src, rel.Dst, schema.RelKind(rel.Kind), schema.Record(rel.Fields)); err != nil {
			return err
		}
	}
	return nil
}

// embedPassages chunks the body and stores each chunk with the canonical
// header attached, so retrieved context always carries provenance.
func (p *Pipeline) embedPassages(ctx context.Context, md Metadata, text string) error {
	chunks, err := chunkText(text, p.encoder, p.maxTokens)
	if err != nil {
		return err
	}
	if len(chunks) == 0 && strings.TrimSpace(text) != "" {
		chunks = []string{strings.TrimSpace(text)}
	}

	header := headerFor(md)
	for _, chunk := range chunks {
		passage := chunk
		if header != "" {
			passage = header + "\n\n" + chunk
		}
		vec, err := p.cache.GetOrCompute(ctx, passage)
		if err != nil {
			return err
		}
		if err := p.store.SavePassage(ctx, md.ID, passage, vec); err != nil {
			return err
		}
	}
	return nil
}
