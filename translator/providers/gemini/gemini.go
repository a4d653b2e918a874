package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/ratelimit"
	"github.com/ownlingo/transmux/translator/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// ID is the registry identifier of the Gemini provider
const ID = "gemini"

// Provider implements translator.Provider for Google Gemini
type Provider struct {
	client       *genai.Client
	modelName    string
	rateLimiter  *ratelimit.Limiter
	retryConfig  *retry.Config
	reliableJSON bool
}

// Config holds Gemini provider configuration
type Config struct {
	APIKey       string
	Model        string
	TPM          int // Tokens per minute
	RPM          int // Requests per minute
	RetryConfig  *retry.Config
	ReliableJSON bool
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:       apiKey,
		Model:        "gemini-1.5-pro",
		TPM:          32000, // Gemini default TPM
		RPM:          60,    // Gemini default RPM
		RetryConfig:  retry.DefaultConfig(),
		ReliableJSON: true,
	}
}

// NewProvider creates a new Gemini provider
func NewProvider(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		client:       client,
		modelName:    config.Model,
		rateLimiter:  ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig:  config.RetryConfig,
		reliableJSON: config.ReliableJSON,
	}, nil
}

// Close closes the Gemini client
func (p *Provider) Close() error {
	return p.client.Close()
}

// Descriptor returns the provider's capabilities
func (p *Provider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:                 ID,
		Name:               "Google Gemini",
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
	// A model handle per call; workers translate concurrently
	model := p.client.GenerativeModel(p.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(translator.SystemPrompt(opts.Mode))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(translator.UserPrompt(text, source, target)))
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", translator.NewError(translator.KindTransient, ID, fmt.Errorf("no content returned from Gemini"))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	if b.Len() == 0 {
		return "", translator.NewError(translator.KindTransient, ID, fmt.Errorf("no text returned from Gemini"))
	}

	return b.String(), nil
}

// classify maps a Gemini client error to an error kind. The client reports
// gRPC statuses through apierror and REST failures as googleapi errors.
func classify(err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.HTTPCode(); code > 0 {
			return translator.FromStatus(ID, code, err)
		}
		if st := apiErr.GRPCStatus(); st != nil {
			return fromCode(st.Code(), err)
		}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return translator.FromStatus(ID, gErr.Code, err)
	}

	return translator.Classify(ID, err)
}

func fromCode(code codes.Code, err error) error {
	kind := translator.KindTransient

	switch code {
	case codes.ResourceExhausted:
		kind = translator.KindRateLimited
	case codes.Unauthenticated, codes.PermissionDenied:
		kind = translator.KindAuth
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		kind = translator.KindValidation
	case codes.Canceled:
		kind = translator.KindUserCancelled
	}

	return translator.NewError(kind, ID, err)
}
