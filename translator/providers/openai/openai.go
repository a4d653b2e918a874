package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/ratelimit"
	"github.com/ownlingo/transmux/translator/retry"
	"github.com/sashabaranov/go-openai"
)

// ID is the registry identifier of the OpenAI provider
const ID = "openai"

// Provider implements translator.Provider for OpenAI
type Provider struct {
	client       *openai.Client
	model        string
	rateLimiter  *ratelimit.Limiter
	retryConfig  *retry.Config
	reliableJSON bool
}

// Config holds OpenAI provider configuration
type Config struct {
	APIKey       string
	BaseURL      string // Optional; any OpenAI compatible endpoint
	Model        string
	TPM          int // Tokens per minute
	RPM          int // Requests per minute
	RetryConfig  *retry.Config
	ReliableJSON bool // Trust the model with delimiter-joined and JSON payloads
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:       apiKey,
		Model:        "gpt-4o",
		TPM:          90000, // GPT-4o default TPM
		RPM:          500,   // GPT-4o default RPM
		RetryConfig:  retry.DefaultConfig(),
		ReliableJSON: true,
	}
}

// NewProvider creates a new OpenAI provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        config.Model,
		rateLimiter:  ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig:  config.RetryConfig,
		reliableJSON: config.ReliableJSON,
	}
}

// Descriptor returns the provider's capabilities
func (p *Provider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:                 ID,
		Name:               "OpenAI",
		ReliableJSONMode:   p.reliableJSON,
		SupportsDictionary: true,
		Category:           translator.CategoryAI,
		Tuning:             translator.DefaultTuning(translator.CategoryAI),
	}
}

// Translate translates text from source to target language
func (p *Provider) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	var out string

	// Retry with exponential backoff
	err := retry.Do(ctx, p.retryConfig, func() error {
		if err := p.rateLimiter.Wait(ctx, ratelimit.EstimateTokens(text)); err != nil {
			return translator.Classify(ID, err)
		}

		res, err := p.translate(ctx, text, source, target, opts)
		if err != nil {
			return err
		}

		out = res
		return nil
	})

	if err != nil {
		return "", err
	}

	return out, nil
}

func (p *Provider) translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: translator.SystemPrompt(opts.Mode),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: translator.UserPrompt(text, source, target),
			},
		},
	})

	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", translator.NewError(translator.KindTransient, ID, fmt.Errorf("no choices returned from OpenAI"))
	}

	return resp.Choices[0].Message.Content, nil
}

// classify maps an OpenAI client error to an error kind by HTTP status
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return translator.FromStatus(ID, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return translator.FromStatus(ID, reqErr.HTTPStatusCode, err)
	}

	return translator.Classify(ID, err)
}
