package openai

import (
	"context"
	"time"

	"github.com/planrag/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

func (c *Client) buildMessages(prompt string, options ai.GenerateOptions) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))
	return msgs
}

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
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

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(rCtx, body)
	if err != nil {
		return "", ai.WrapGeneration(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	return response.Choices[0].Message.Content, nil
}

// GenerateCompletionWithFormat sends a prompt to the chat model enforcing a
// JSON schema derived from out, and unmarshals the response into out.
func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	schema := ai.GenerateSchema(out)
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.generationModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(rCtx, body)
	if err != nil {
		return ai.WrapGeneration(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	return ai.UnmarshalFlexible(response.Choices[0].Message.Content, out)
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

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	stream := c.chat.Chat.Completions.NewStreaming(rCtx, body)

	out := make(chan string, 10)
	go func() {
		defer close(out)
		defer cancel()

		start := time.Now()
		outputTokens := 0
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			outputTokens++
			select {
			case out <- delta:
			case <-rCtx.Done():
				return
			}
		}

		c.modifyMetrics(ai.ModelMetrics{
			OutputTokens: outputTokens,
			TotalTokens:  outputTokens,
			DurationMs:   time.Since(start).Milliseconds(),
		})
	}()

	return out, nil
}
