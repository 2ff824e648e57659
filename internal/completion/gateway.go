// Package completion wraps the upstream LLM provider behind a small gateway.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Answer temperature mirrors the product's tuned setting.
const answerTemperature = 0.4

// ProviderError wraps an upstream completion failure.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Gateway produces completions for user questions.
type Gateway struct {
	client *openai.Client
	model  string
	system string
}

// NewGateway creates a completion gateway.
func NewGateway(client *openai.Client, model, systemPrompt string) *Gateway {
	return &Gateway{
		client: client,
		model:  model,
		system: systemPrompt,
	}
}

func (g *Gateway) request(question string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: answerTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}
}

// Complete returns the full answer for question. An upstream failure comes
// back as a ProviderError; an empty completion comes back as "".
func (g *Gateway) Complete(ctx context.Context, question string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.request(question))
	if err != nil {
		return "", &ProviderError{Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Stream produces the answer incrementally, calling emit for each content
// chunk. It stops on context cancellation or when emit returns an error.
func (g *Gateway) Stream(ctx context.Context, question string, emit func(chunk string) error) error {
	req := g.request(question)
	req.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return &ProviderError{Err: err}
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ProviderError{Err: err}
		}

		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		if err := emit(chunk); err != nil {
			return err
		}
	}
}
