package ollama

import (
	"context"
	"strings"

	"github.com/planrag/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text using
// the configured embedding model on Ollama. The input is provided as a byte
// slice and converted to a string before being sent; empty input returns nil
// so callers can skip blank passages.
func (c *Client) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return nil, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, ai.WrapEmbedding(err)
	}
	defer c.reqLock.Release(1)

	res, err := c.api.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	})
	if err != nil {
		return nil, ai.WrapEmbedding(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) == 0 {
		return nil, ai.WrapEmbedding(errEmptyEmbedding)
	}

	out := make([]float32, len(res.Embeddings[0]))
	copy(out, res.Embeddings[0])
	return out, nil
}
