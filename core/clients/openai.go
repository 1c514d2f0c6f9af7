// Package clients wraps the external OpenAI-compatible API: speech to
// text for audio chunks and chat completions for the text stages.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"

	"github.com/mudler/recap/core/schema"
)

// ErrMissingAPIKey is a configuration error surfaced before any file
// processing begins.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// OpenAI is the concrete external capability used by the pipeline.
type OpenAI struct {
	client          *openai.Client
	chatModel       string
	transcribeModel string
	maxTokens       int
	temperature     float32
}

type Options struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	MaxTokens       int
	Temperature     float32
}

func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		client:          openai.NewClientWithConfig(cfg),
		chatModel:       opts.ChatModel,
		transcribeModel: opts.TranscribeModel,
		maxTokens:       opts.MaxTokens,
		temperature:     opts.Temperature,
	}, nil
}

// ChatModel returns the completion model the client is configured with.
func (c *OpenAI) ChatModel() string { return c.chatModel }

// TranscribeModel returns the speech-to-text model in use.
func (c *OpenAI) TranscribeModel() string { return c.transcribeModel }

// Transcribe sends one audio chunk and returns its text. The language
// hint may be empty.
func (c *OpenAI) Transcribe(ctx context.Context, path, language string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: path,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

// Complete runs one chat completion and reports the tokens it consumed.
// On failure the returned Usage carries the model with zero counts so the
// call can still be recorded.
func (c *OpenAI) Complete(ctx context.Context, system, prompt string) (string, schema.Usage, error) {
	usage := schema.Usage{Model: c.chatModel}

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", usage, fmt.Errorf("completion request: %w", err)
	}

	usage.PromptTokens = resp.Usage.PromptTokens
	usage.CompletionTokens = resp.Usage.CompletionTokens

	if len(resp.Choices) == 0 {
		return "", usage, errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// IsTransient distinguishes provider errors worth retrying (rate limits,
// server errors, network timeouts) from permanent ones (authentication,
// payload rejected). Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return true
		default:
			return apiErr.HTTPStatusCode >= http.StatusInternalServerError
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
