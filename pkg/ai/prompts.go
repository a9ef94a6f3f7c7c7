package ai

// Prompt templates for the retrieval engine. Each template takes the
// assembled context first and the user question second via fmt.Sprintf.

// FactualPrompt answers simple fact-retrieval questions strictly from context.
const FactualPrompt = `You are an expert assistant for an AEC (Architecture, Engineering, Construction) design management system.

Context from project documents:
%s

User question: %s

Provide a factual answer based ONLY on the context above. If the context doesn't contain the answer, say "I don't have enough information to answer this question."

Answer:`

// ImpactAnalysisPrompt produces a severity-tagged list of affected drawings,
// components, or systems.
const ImpactAnalysisPrompt = `You are analyzing design change impacts in an AEC project.

Context:
%s

Design change: %s

Analyze which drawings, components, or systems will be affected by this change. List specific impacts and their severity (minor, moderate, major).

Impact Analysis:`

// VersionComparisonPrompt produces a side-by-side explanation of what changed
// between drawing versions.
const VersionComparisonPrompt = `You are comparing different versions of an architectural drawing.

Version Information:
%s

Question: %s

Compare the versions and explain what changed between them. Focus on functional changes, not administrative details.

Comparison:`

// CodeCompliancePrompt produces a compliance verdict with code citations.
const CodeCompliancePrompt = `You are reviewing code compliance for building components.

Building Codes and Requirements:
%s

Component/Question: %s

Determine if the component meets applicable building codes. Cite specific code sections.

Compliance Analysis:`

// MultiHopPrompt answers questions that require reasoning across several
// documents and graph paths.
const MultiHopPrompt = `You are answering a question that spans multiple documents of an AEC project. Reason step by step across the provided context before answering.

Context from project documents:
%s

Question: %s

Answer:`

// RoutingPrompt classifies a question's intent. It takes only the question
// and is always issued at temperature 0; the first response line is parsed.
const RoutingPrompt = `Analyze this user query and determine its intent.

Query: %s

Classify the intent as one of:
- factual: Simple fact retrieval
- impact_analysis: Understanding effects of changes
- version_comparison: Comparing drawing versions
- code_compliance: Code requirement questions
- multi_hop: Requires reasoning across multiple documents

Intent:`

// NoContextMarker is passed as context when retrieval yields zero passages,
// so the template's own "insufficient information" branch can respond.
const NoContextMarker = "[no context retrieved]"
