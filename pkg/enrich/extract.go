package enrich

import (
	"context"
	"fmt"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/schema"
)

// Extraction is the graph content pulled out of free text: entities beyond
// the one named in the metadata, and relationships between them.
type Extraction struct {
	Entities  []ExtractedEntity   `json:"entities"`
	Relations []ExtractedRelation `json:"relations"`
}

type ExtractedEntity struct {
	ID     string            `json:"id" jsonschema_description:"Stable identifier, e.g. the drawing number or component tag"`
	Kind   string            `json:"kind" jsonschema_description:"One of: Drawing, Component, Room, Decision, Person, Requirement, Milestone"`
	Fields map[string]string `json:"fields,omitempty"`
}

type ExtractedRelation struct {
	Src    string            `json:"src"`
	Dst    string            `json:"dst"`
	Kind   string            `json:"kind" jsonschema_description:"One of: SUPERSEDES, AFFECTS, CONTAINS, LOCATED_IN, REQUIRES, APPROVED_BY, MADE_BY, MODIFIES, REFERENCES, SUBMITTED_AT"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Extractor is the graph-construction collaborator: it reads enriched
// document text and proposes entities and relationships.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

const extractionPrompt = `You extract a knowledge graph from construction project documents.

Identify entities (drawings, building components, rooms, decisions, people, code requirements, milestones) and the relationships between them.

Use only these entity kinds: Drawing, Component, Room, Decision, Person, Requirement, Milestone.
Use only these relationship kinds: SUPERSEDES, AFFECTS, CONTAINS, LOCATED_IN, REQUIRES, APPROVED_BY, MADE_BY, MODIFIES, REFERENCES, SUBMITTED_AT.
Use drawing numbers, component tags or names as entity IDs. Only report what the text states.

Document:
%s`

// AIExtractor proposes graph content with a structured-output generation
// call. Proposals are validated against the schema registry before any
// of them reach the graph.
type AIExtractor struct {
	client ai.Client
	model  string
}

type AIExtractorParams struct {
	Client ai.Client
	Model  string
}

func NewAIExtractor(params AIExtractorParams) *AIExtractor {
	return &AIExtractor{client: params.Client, model: params.Model}
}

func (e *AIExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	var out Extraction
	opts := []ai.GenerateOption{ai.WithTemperature(0)}
	if e.model != "" {
		opts = append(opts, ai.WithModel(e.model))
	}
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"graph_extraction",
		"Entities and relationships found in a construction document",
		fmt.Sprintf(extractionPrompt, text),
		&out,
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// NopExtractor skips free-text extraction. Used when ingestion should only
// apply metadata-driven structure.
type NopExtractor struct{}

func (NopExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	return &Extraction{}, nil
}

// filterExtraction drops proposals that fail schema validation instead of
// failing the whole ingest; extraction output is untrusted.
func filterExtraction(ex *Extraction) (entities []ExtractedEntity, relations []ExtractedRelation) {
	known := map[string]schema.Kind{}
	for _, ent := range ex.Entities {
		kind := schema.Kind(ent.Kind)
		if _, ok := schema.Registry[kind]; !ok {
			continue
		}
		if ent.ID == "" {
			continue
		}
		known[ent.ID] = kind
		entities = append(entities, ent)
	}
	for _, rel := range ex.Relations {
		kind := schema.RelKind(rel.Kind)
		if !schema.ValidRelKind(kind) {
			continue
		}
		srcKind, okSrc := known[rel.Src]
		dstKind, okDst := known[rel.Dst]
		if !okSrc || !okDst {
			continue
		}
		if err := schema.ValidateEndpoints(kind, srcKind, dstKind); err != nil {
			continue
		}
		if err := schema.ValidateEdgeFields(kind, schema.Record(rel.Fields)); err != nil {
			continue
		}
		relations = append(relations, rel)
	}
	return entities, relations
}
