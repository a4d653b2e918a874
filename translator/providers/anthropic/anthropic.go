package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/ratelimit"
	"github.com/ownlingo/transmux/translator/retry"
)

// ID is the registry identifier of the Anthropic provider
const ID = "anthropic"

// Provider implements translator.Provider for Anthropic
type Provider struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	rateLimiter  *ratelimit.Limiter
	retryConfig  *retry.Config
	reliableJSON bool
}

// Config holds Anthropic provider configuration
type Config struct {
	APIKey       string
	BaseURL      string // Optional
	Model        string
	MaxTokens    int64
	TPM          int // Tokens per minute
	RPM          int // Requests per minute
	RetryConfig  *retry.Config
	ReliableJSON bool
}

// DefaultConfig returns default Anthropic configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:       apiKey,
		Model:        "claude-sonnet-4-20250514",
		MaxTokens:    4096,
		TPM:          80000, // Claude Sonnet default TPM
		RPM:          50,    // Claude Sonnet default RPM
		RetryConfig:  retry.DefaultConfig(),
		ReliableJSON: true,
	}
}

// NewProvider creates a new Anthropic provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	// Retries are ours; the SDK's own would multiply them
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Provider{
		client:       anthropic.NewClient(opts...),
		model:        config.Model,
		maxTokens:    maxTokens,
		rateLimiter:  ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig:  config.RetryConfig,
		reliableJSON: config.ReliableJSON,
	}
}

// Descriptor returns the provider's capabilities
func (p *Provider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:                 ID,
		Name:               "Anthropic",
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
	// Combine system prompt with user request since SDK typing is complex
	fullPrompt := translator.SystemPrompt(opts.Mode) + "\n\n" + translator.UserPrompt(text, source, target)

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fullPrompt)),
		},
	})

	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		b.WriteString(block.Text)
	}

	if b.Len() == 0 {
		return "", translator.NewError(translator.KindTransient, ID, fmt.Errorf("no content returned from Anthropic"))
	}

	return b.String(), nil
}

// classify maps an Anthropic client error to an error kind. 529 means the
// API is overloaded and is worth retrying.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 529 {
			return translator.FromStatus(ID, 503, err)
		}
		return translator.FromStatus(ID, apiErr.StatusCode, err)
	}

	return translator.Classify(ID, err)
}
