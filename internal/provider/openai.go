package provider

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = `Você é um atendente virtual educado e objetivo de uma empresa brasileira.
Responda em português, em no máximo três frases. Se não souber a resposta,
diga que vai encaminhar a pergunta para um atendente humano.`

// OpenAIConfig holds settings for the OpenAI-backed responder.
type OpenAIConfig struct {
	APIKey       string
	APIBase      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// OpenAIResponder answers customer messages with a chat completion.
type OpenAIResponder struct {
	client       *openai.Client
	model        string
	systemPrompt string
	timeout      time.Duration
}

// NewOpenAIResponder creates a Responder backed by the OpenAI API. APIBase
// may point at any OpenAI-compatible endpoint.
func NewOpenAIResponder(cfg OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIResponder{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
	}, nil
}

// Respond generates a reply to one customer message. The conversation
// identifiers are accepted for interface compatibility; the prompt is built
// from the message alone.
func (r *OpenAIResponder) Respond(ctx context.Context, agentID, phoneNumber, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
