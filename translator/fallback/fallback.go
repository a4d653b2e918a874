package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ownlingo/transmux/translator"
)

// Chain is a composite provider that tries its providers in order
type Chain struct {
	id        string
	providers []translator.Provider
}

// NewChain creates a new fallback chain registered under id.
// Providers are tried in order: primary → secondary → tertiary → ...
func NewChain(id string, providers ...translator.Provider) *Chain {
	if len(providers) == 0 {
		panic("at least one provider is required")
	}

	return &Chain{
		id:        id,
		providers: providers,
	}
}

// Descriptor describes the chain as its primary provider under the chain's
// ID. JSON payloads are only trusted when every provider can keep them.
func (c *Chain) Descriptor() translator.Descriptor {
	d := c.providers[0].Descriptor()

	d.Name = fmt.Sprintf("fallback-chain(%s)", d.Name)
	d.ID = c.id

	for _, p := range c.providers[1:] {
		if !p.Descriptor().ReliableJSONMode {
			d.ReliableJSONMode = false
		}
	}

	return d
}

// Translate attempts translation with fallback to secondary providers on
// failure. Cancellation stops the chain.
func (c *Chain) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	var lastErr error

	for i, provider := range c.providers {
		out, err := provider.Translate(ctx, text, source, target, opts)
		if err == nil {
			return out, nil
		}

		if ctx.Err() != nil || translator.IsKind(err, translator.KindUserCancelled) {
			return "", err
		}

		lastErr = fmt.Errorf("provider %s (%d/%d) failed: %w",
			provider.Descriptor().ID, i+1, len(c.providers), err)
	}

	return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
}

// Close closes every provider in the chain that holds resources
func (c *Chain) Close() error {
	var errs []error

	for _, p := range c.providers {
		if closer, ok := p.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
