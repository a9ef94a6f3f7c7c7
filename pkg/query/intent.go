package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/store"
)

// Intent is the classified purpose of a natural-language query. It selects
// the prompt template and the retrieval mode.
type Intent string

const (
	IntentFactual           Intent = "factual"
	IntentImpactAnalysis    Intent = "impact_analysis"
	IntentVersionComparison Intent = "version_comparison"
	IntentCodeCompliance    Intent = "code_compliance"
	IntentMultiHop          Intent = "multi_hop"
)

// Binding ties an intent to its prompt template, default retrieval mode and
// default result cardinality. The table is pure data; callers may override
// mode and top-k per request.
type Binding struct {
	Template string
	Mode     store.Mode
	TopK     int
}

var bindings = map[Intent]Binding{
	IntentFactual:           {Template: ai.FactualPrompt, Mode: store.ModeLocal, TopK: 5},
	IntentImpactAnalysis:    {Template: ai.ImpactAnalysisPrompt, Mode: store.ModeGlobal, TopK: 10},
	IntentVersionComparison: {Template: ai.VersionComparisonPrompt, Mode: store.ModeGlobal, TopK: 5},
	IntentCodeCompliance:    {Template: ai.CodeCompliancePrompt, Mode: store.ModeLocal, TopK: 5},
	IntentMultiHop:          {Template: ai.MultiHopPrompt, Mode: store.ModeGlobal, TopK: 10},
}

// BindingFor returns the binding table entry for the intent; unknown intents
// map to factual.
func BindingFor(intent Intent) Binding {
	if b, ok := bindings[intent]; ok {
		return b
	}
	return bindings[IntentFactual]
}

// classificationOrder is checked front to back when parsing the model's
// label; factual last so it also serves as the fallback.
var classificationOrder = []Intent{
	IntentImpactAnalysis,
	IntentVersionComparison,
	IntentCodeCompliance,
	IntentMultiHop,
	IntentFactual,
}

// ClassifyIntent asks the generation service for the question's intent at
// temperature 0 and parses the first response line. An unrecognized label or
// a failed call degrades to factual and is logged, never raised.
func ClassifyIntent(ctx context.Context, client ai.Client, question string) Intent {
	res, err := client.GenerateCompletion(ctx,
		fmt.Sprintf(ai.RoutingPrompt, question),
		ai.WithTemperature(0),
		ai.WithMaxTokens(50),
	)
	if err != nil {
		logger.Warn("Intent classification failed, defaulting to factual", "err", err)
		return IntentFactual
	}

	line, _, _ := strings.Cut(strings.TrimSpace(res), "\n")
	line = strings.ToLower(strings.TrimSpace(line))
	for _, intent := range classificationOrder {
		if strings.Contains(line, string(intent)) {
			return intent
		}
	}

	logger.Warn("Unrecognized intent label, defaulting to factual", "label", line)
	return IntentFactual
}
