package ai

import "context"

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Completion token limit, 0 for the backend default
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// Lower values make outputs more deterministic; intent classification always
// runs at 0.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens returns a GenerateOption that caps the completion length.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// ModelMetrics contains accumulated token and timing metrics from AI calls.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Client defines the interface to the external embedding and generation
// services. Implementations are selected at construction time from a closed
// set of backends (Ollama, OpenAI-compatible); all of them gate concurrent
// requests to respect service and VRAM limits.
type Client interface {
	// GenerateCompletion sends a single-turn prompt and returns assistant text.
	GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateCompletionWithFormat requests structured output matching the
	// JSON schema derived from out, and unmarshals the response into out.
	GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...GenerateOption) error

	// GenerateStream streams completion fragments in arrival order. The
	// channel is closed when the response is complete.
	GenerateStream(ctx context.Context, prompt string, opts ...GenerateOption) (<-chan string, error)

	// GenerateEmbedding creates a fixed-dimension vector for the input text.
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
