package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planrag/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. Empty input returns nil so callers
// can skip blank passages.
func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return nil, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.embed.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(string(input)),
		},
	})
	if err != nil {
		return nil, ai.WrapEmbedding(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(res.Usage.PromptTokens),
		TotalTokens: int(res.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(res.Data) != 1 {
		return nil, ai.WrapEmbedding(fmt.Errorf("unexpected embedding result size: got %d want 1", len(res.Data)))
	}

	out := make([]float32, len(res.Data[0].Embedding))
	for i, v := range res.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
