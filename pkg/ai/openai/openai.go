package openai

import (
	"sync"
	"time"

	"github.com/planrag/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client implements the ai.Client interface against an OpenAI-compatible
// API. Separate endpoints may be configured for embeddings and chat so the
// two can be served by different providers.
type Client struct {
	embeddingModel  string
	generationModel string

	embeddingURL string
	chatURL      string

	timeout time.Duration

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	chat  *openai.Client
	embed *openai.Client
}

// NewClientParams defines the configuration for creating a new Client.
type NewClientParams struct {
	EmbeddingModel  string
	GenerationModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	Timeout time.Duration
}

func newOpenaiClient(baseURL, key string) *openai.Client {
	opts := []option.RequestOption{}
	if key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	return &c
}

// NewClient creates a new OpenAI-compatible AI client with the provided
// parameters.
func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		embeddingModel:  params.EmbeddingModel,
		generationModel: params.GenerationModel,

		embeddingURL: params.EmbeddingURL,
		chatURL:      params.ChatURL,

		timeout: timeout,

		chat:  newOpenaiClient(params.ChatURL, params.ChatKey),
		embed: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs

	if c.metrics.DurationMs > 0 {
		tps := (float64(c.metrics.TotalTokens) * 1000.0) / float64(c.metrics.DurationMs)
		c.metrics.TokenPerSecond = float32(tps)
	}
}
