// Package providers registers every built-in provider with a registry.
package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ownlingo/transmux/config"
	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/fallback"
	"github.com/ownlingo/transmux/translator/providers/anthropic"
	"github.com/ownlingo/transmux/translator/providers/bing"
	"github.com/ownlingo/transmux/translator/providers/gemini"
	"github.com/ownlingo/transmux/translator/providers/google"
	"github.com/ownlingo/transmux/translator/providers/openai"
	"github.com/ownlingo/transmux/translator/registry"
)

// AutoID identifies the fallback chain over the providers listed in the
// settings' auto list
const AutoID = "auto"

// Register adds a factory for every built-in provider to reg. Adapters are
// only constructed when first resolved; missing credentials surface then.
func Register(reg *registry.Registry, s *config.Settings, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	factories := map[string]registry.Factory{
		google.ID:    googleFactory(s),
		bing.ID:      bingFactory(s),
		openai.ID:    openaiFactory(s),
		anthropic.ID: anthropicFactory(s),
		gemini.ID:    geminiFactory(s),
	}

	for id, f := range factories {
		reg.Register(id, tuned(id, s, f))
	}

	// The chain owns its own member instances so closing the registry
	// closes each adapter exactly once
	reg.Register(AutoID, func(ctx context.Context) (translator.Provider, error) {
		var members []translator.Provider

		for _, id := range s.Auto {
			f, ok := factories[id]
			if !ok {
				return nil, fmt.Errorf("auto: %w: %s", registry.ErrNotRegistered, id)
			}

			p, err := tuned(id, s, f)(ctx)
			if err != nil {
				log.Warn("skipping auto member", zap.String("provider", id), zap.Error(err))
				continue
			}
			members = append(members, p)
		}

		if len(members) == 0 {
			return nil, fmt.Errorf("auto: no usable providers in %v", s.Auto)
		}

		return fallback.NewChain(AutoID, members...), nil
	})

	log.Debug("providers registered", zap.Strings("providers", reg.IDs()))
}

// tuned applies the configured tuning overrides to what f builds
func tuned(id string, s *config.Settings, f registry.Factory) registry.Factory {
	return func(ctx context.Context) (translator.Provider, error) {
		p, err := f(ctx)
		if err != nil {
			return nil, err
		}
		return translator.Tune(p, s.Provider(id).Tuning.Translator()), nil
	}
}

func googleFactory(s *config.Settings) registry.Factory {
	return func(context.Context) (translator.Provider, error) {
		cfg := google.DefaultConfig()
		if base := s.Provider(google.ID).BaseURL; base != "" {
			cfg.BaseURL = base
		}
		return google.NewProvider(cfg), nil
	}
}

func bingFactory(s *config.Settings) registry.Factory {
	return func(context.Context) (translator.Provider, error) {
		cfg := bing.DefaultConfig()
		if base := s.Provider(bing.ID).BaseURL; base != "" {
			cfg.TranslateURL = base
		}
		return bing.NewProvider(cfg), nil
	}
}

func openaiFactory(s *config.Settings) registry.Factory {
	return func(context.Context) (translator.Provider, error) {
		ps := s.Provider(openai.ID)
		if ps.APIKey == "" {
			return nil, fmt.Errorf("%s is not set", config.EnvOpenAIKey)
		}

		cfg := openai.DefaultConfig(ps.APIKey)
		cfg.BaseURL = ps.BaseURL
		applyAI(ps, &cfg.Model, &cfg.TPM, &cfg.RPM, &cfg.ReliableJSON)

		return openai.NewProvider(cfg), nil
	}
}

func anthropicFactory(s *config.Settings) registry.Factory {
	return func(context.Context) (translator.Provider, error) {
		ps := s.Provider(anthropic.ID)
		if ps.APIKey == "" {
			return nil, fmt.Errorf("%s is not set", config.EnvAnthropicKey)
		}

		cfg := anthropic.DefaultConfig(ps.APIKey)
		cfg.BaseURL = ps.BaseURL
		applyAI(ps, &cfg.Model, &cfg.TPM, &cfg.RPM, &cfg.ReliableJSON)

		return anthropic.NewProvider(cfg), nil
	}
}

func geminiFactory(s *config.Settings) registry.Factory {
	return func(ctx context.Context) (translator.Provider, error) {
		ps := s.Provider(gemini.ID)
		if ps.APIKey == "" {
			return nil, fmt.Errorf("%s is not set", config.EnvGeminiKey)
		}

		cfg := gemini.DefaultConfig(ps.APIKey)
		applyAI(ps, &cfg.Model, &cfg.TPM, &cfg.RPM, &cfg.ReliableJSON)

		return gemini.NewProvider(ctx, cfg)
	}
}

// applyAI overlays the settings shared by the AI providers
func applyAI(ps config.Provider, model *string, tpm, rpm *int, reliable *bool) {
	if ps.Model != "" {
		*model = ps.Model
	}
	if ps.TPM > 0 {
		*tpm = ps.TPM
	}
	if ps.RPM > 0 {
		*rpm = ps.RPM
	}
	if ps.ReliableJSON != nil {
		*reliable = *ps.ReliableJSON
	}
}
