package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/planrag/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

func (c *Client) buildRequest(prompt string, options ai.GenerateOptions, stream bool) (*api.ChatRequest, error) {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}

	// Grow the context window when the prompt alone exceeds the default.
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, err
	}
	tokens := 200 + len(enc.Encode(prompt, nil, nil))
	if tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}

	return req, nil
}

func (c *Client) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", ai.WrapGeneration(err)
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.api.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", ai.WrapGeneration(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *Client) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.generationModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	req, err := c.buildRequest(prompt, options, false)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, req)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	schemaObj := ai.GenerateSchema(out)
	formatBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return err
	}

	options := ai.GenerateOptions{
		Model:       c.generationModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	req, err := c.buildRequest(prompt, options, false)
	if err != nil {
		return err
	}
	req.Format = json.RawMessage(formatBytes)

	content, err := c.chat(ctx, req)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(content, out)
}

// GenerateStream streams completion fragments in arrival order.
func (c *Client) GenerateStream(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (<-chan string, error) {
	options := ai.GenerateOptions{
		Model:       c.generationModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	req, err := c.buildRequest(prompt, options, true)
	if err != nil {
		return nil, err
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		cancel()
		return nil, ai.WrapGeneration(err)
	}

	out := make(chan string, 10)
	go func() {
		defer close(out)
		defer cancel()
		defer c.reqLock.Release(1)

		var final api.ChatResponse
		_ = c.api.Chat(rCtx, req, func(cr api.ChatResponse) error {
			if cr.Message.Content != "" {
				select {
				case out <- cr.Message.Content:
				case <-rCtx.Done():
					return rCtx.Err()
				}
			}
			if cr.Done {
				final.Metrics = cr.Metrics
			}
			return nil
		})

		c.modifyMetrics(ai.ModelMetrics{
			InputTokens:  final.Metrics.PromptEvalCount,
			OutputTokens: final.Metrics.EvalCount,
			TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
			DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
		})
	}()

	return out, nil
}
