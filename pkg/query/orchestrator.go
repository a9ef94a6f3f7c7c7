package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/store"
)

// Stage names the orchestrator's position in the query lifecycle.
type Stage string

const (
	StageReceived         Stage = "RECEIVED"
	StageEntityActivation Stage = "ENTITY_ACTIVATION"
	StageContextAssembly  Stage = "CONTEXT_ASSEMBLY"
	StageGeneration       Stage = "GENERATION"
	StageResult           Stage = "RESULT"
	StageFailed           Stage = "FAILED"
)

// Options override the intent binding for a single query. Zero values keep
// the binding defaults.
type Options struct {
	Intent Intent     // skip classification and force this intent
	Mode   store.Mode // retrieval mode override
	TopK   int        // result cardinality override
	Stream bool       // stream generation fragments, concatenated in arrival order
}

// Result is a completed query: the generated answer plus the intent-specific
// typed sections resolved from the graph.
type Result struct {
	Answer   string          `json:"answer"`
	Intent   Intent          `json:"intent"`
	Mode     store.Mode      `json:"mode"`
	TopK     int             `json:"top_k"`
	Stage    Stage           `json:"stage"`
	Passages []store.Passage `json:"passages,omitempty"`

	VersionHistory []VersionEntry    `json:"version_history,omitempty"`
	Impacts        []Impact          `json:"impacts,omitempty"`
	Compliance     []ComplianceEntry `json:"compliance,omitempty"`
}

// Orchestrator runs the two-stage retrieval flow: entity activation against
// the vector index, graph-aware context assembly, then generation. It never
// mutates the graph, so an abandoned query leaves no trace.
type Orchestrator struct {
	client     ai.Client
	cache      *embed.Cache
	store      store.GraphStorage
	usage      *TokenUsage
	contextCap int
}

type OrchestratorParams struct {
	Client     ai.Client
	Cache      *embed.Cache
	Store      store.GraphStorage
	Usage      *TokenUsage // shared accumulator; a fresh one is created when nil
	ContextCap int         // whitespace-token cap for assembled context, default 2000
}

func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	o := &Orchestrator{
		client:     params.Client,
		cache:      params.Cache,
		store:      params.Store,
		usage:      params.Usage,
		contextCap: params.ContextCap,
	}
	if o.usage == nil {
		o.usage = &TokenUsage{}
	}
	if o.contextCap <= 0 {
		o.contextCap = 2000
	}
	return o
}

// Usage returns the orchestrator's token accumulator.
func (o *Orchestrator) Usage() *TokenUsage {
	return o.usage
}

// Query answers a natural-language question. The stage machine is
// RECEIVED, ENTITY_ACTIVATION, CONTEXT_ASSEMBLY, GENERATION, RESULT; an
// unrecoverable error at any stage returns a FAILED result with the error.
func (o *Orchestrator) Query(ctx context.Context, question string, opts Options) (*Result, error) {
	r := &Result{Stage: StageReceived}

	r.Intent = opts.Intent
	if r.Intent == "" {
		r.Intent = ClassifyIntent(ctx, o.client, question)
	}
	binding := BindingFor(r.Intent)

	r.Mode = binding.Mode
	if opts.Mode != "" {
		if !store.ValidMode(opts.Mode) {
			r.Stage = StageFailed
			return r, fmt.Errorf("unknown retrieval mode %q", opts.Mode)
		}
		r.Mode = opts.Mode
	}
	r.TopK = binding.TopK
	if opts.TopK > 0 {
		r.TopK = opts.TopK
	}

	r.Stage = StageEntityActivation
	queryVec, err := o.cache.GetOrCompute(ctx, question)
	if err != nil {
		r.Stage = StageFailed
		return r, err
	}
	passages, err := o.store.SimilaritySearch(ctx, queryVec, r.Mode, r.TopK)
	if err != nil {
		r.Stage = StageFailed
		return r, err
	}
	r.Passages = passages

	r.Stage = StageContextAssembly
	contextText := assembleContext(passages, o.contextCap)

	r.Stage = StageGeneration
	prompt := fmt.Sprintf(binding.Template, contextText, question)
	answer, err := o.generate(ctx, prompt, opts.Stream)
	if err != nil {
		r.Stage = StageFailed
		return r, err
	}
	o.usage.Add(prompt, answer)
	r.Answer = answer

	if err := o.attachTyped(ctx, r, question); err != nil {
		r.Stage = StageFailed
		return r, err
	}

	r.Stage = StageResult
	logger.Debug("Query answered",
		"intent", r.Intent, "mode", r.Mode, "top_k", r.TopK,
		"passages", len(passages))
	return r, nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt string, stream bool) (string, error) {
	if !stream {
		return o.client.GenerateCompletion(ctx, prompt)
	}
	fragments, err := o.client.GenerateStream(ctx, prompt)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for fragment := range fragments {
		b.WriteString(fragment)
	}
	return b.String(), nil
}

// attachTyped resolves the intent-specific graph sections of the result.
func (o *Orchestrator) attachTyped(ctx context.Context, r *Result, question string) error {
	switch r.Intent {
	case IntentVersionComparison:
		number := extractDrawingNumber(question)
		if number == "" {
			return nil
		}
		history, err := DrawingVersions(ctx, o.store, number)
		if err != nil {
			return err
		}
		r.VersionHistory = history

	case IntentImpactAnalysis:
		rootID := o.resolveDrawingID(ctx, question)
		if rootID == "" {
			return nil
		}
		impacts, err := ImpactReport(ctx, o.store, rootID)
		if err != nil {
			return err
		}
		r.Impacts = impacts
	}
	return nil
}

// resolveDrawingID maps a drawing number mentioned in the question to the
// current version's node ID, trying the raw token as a node ID first.
func (o *Orchestrator) resolveDrawingID(ctx context.Context, question string) string {
	token := extractDrawingNumber(question)
	if token == "" {
		return ""
	}
	if _, err := o.store.GetNode(ctx, token); err == nil {
		return token
	}
	if n, err := o.store.CurrentVersion(ctx, token); err == nil {
		return n.ID
	}
	return ""
}

// VersionHistory answers "what changed" for a drawing number and returns the
// supersession chain newest-first.
func (o *Orchestrator) VersionHistory(ctx context.Context, drawingNumber string) (*Result, error) {
	question := fmt.Sprintf(
		"What is the version history of drawing %s? List all versions and what changed between them.",
		drawingNumber)
	return o.Query(ctx, question, Options{Intent: IntentVersionComparison, Mode: store.ModeGlobal})
}

// AnalyzeImpact reports which entities a described design change affects.
func (o *Orchestrator) AnalyzeImpact(ctx context.Context, change string) (*Result, error) {
	return o.Query(ctx, change, Options{Intent: IntentImpactAnalysis, Mode: store.ModeGlobal, TopK: 10})
}

// CheckCompliance reviews a component against the given code requirements
// and enumerates its REQUIRES edges.
func (o *Orchestrator) CheckCompliance(ctx context.Context, componentID string, requirements []string) (*Result, error) {
	question := fmt.Sprintf("Does component %s comply with the applicable requirements?", componentID)
	if len(requirements) > 0 {
		question = fmt.Sprintf("Does component %s comply with: %s?", componentID, strings.Join(requirements, "; "))
	}

	r, err := o.Query(ctx, question, Options{Intent: IntentCodeCompliance})
	if err != nil {
		return r, err
	}
	entries, err := ComplianceReport(ctx, o.store, componentID)
	if err != nil {
		r.Stage = StageFailed
		return r, err
	}
	r.Compliance = entries
	return r, nil
}
