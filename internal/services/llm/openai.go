package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog/log"
)

// generationTemperature is fixed for all requests; callers cannot override it.
const generationTemperature = 0.7

type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{
		client: client,
		model:  model,
	}, nil
}

func (c *OpenAIClient) params(systemPrompt, userPrompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(generationTemperature),
	}
}

// Complete issues a single buffered chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream issues a streaming chat completion and forwards token deltas in
// arrival order. The returned channel is closed when the provider finishes or
// fails; a dropped upstream connection surfaces as a terminal chunk error.
func (c *OpenAIClient) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamChunk, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(systemPrompt, userPrompt))

	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			token := chunk.Choices[0].Delta.Content
			if token == "" {
				continue
			}

			select {
			case chunks <- StreamChunk{Token: token}:
			case <-ctx.Done():
				// Caller went away; stop reading from the provider.
				return
			}
		}

		if err := stream.Err(); err != nil {
			log.Error().Err(err).Str("model", c.model).Msg("Completion stream failed")
			select {
			case chunks <- StreamChunk{Err: fmt.Errorf("completion stream failed: %w", err), Done: true}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case chunks <- StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Ensure OpenAIClient implements Transport.
var _ Transport = (*OpenAIClient)(nil)
