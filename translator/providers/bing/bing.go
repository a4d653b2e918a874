// Package bing translates through the Microsoft Edge translator endpoint. The
// endpoint needs a short-lived token which is cached and refreshed here.
package bing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/ownlingo/transmux/translator"
)

// ID is the registry identifier of the Bing provider
const ID = "bing"

const (
	DefaultAuthURL      = "https://edge.microsoft.com/translate/auth"
	DefaultTranslateURL = "https://api-edge.cognitivetranslator.com/translate"

	// DefaultTokenTTL stays under the ten minutes a token is valid for
	DefaultTokenTTL = 8 * time.Minute
)

// Config holds Bing provider configuration
type Config struct {
	AuthURL      string
	TranslateURL string
	TokenTTL     time.Duration
	Timeout      time.Duration
}

// DefaultConfig returns default Bing configuration
func DefaultConfig() *Config {
	return &Config{
		AuthURL:      DefaultAuthURL,
		TranslateURL: DefaultTranslateURL,
		TokenTTL:     DefaultTokenTTL,
		Timeout:      20 * time.Second,
	}
}

// Provider implements translator.Provider for Bing
type Provider struct {
	http         *resty.Client
	authURL      string
	translateURL string
	ttl          time.Duration

	refresh singleflight.Group
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewProvider creates a new Bing provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	p := &Provider{
		http:         resty.New().SetTimeout(config.Timeout),
		authURL:      config.AuthURL,
		translateURL: config.TranslateURL,
		ttl:          config.TokenTTL,
	}

	if p.authURL == "" {
		p.authURL = DefaultAuthURL
	}
	if p.translateURL == "" {
		p.translateURL = DefaultTranslateURL
	}
	if p.ttl <= 0 {
		p.ttl = DefaultTokenTTL
	}

	return p
}

// Descriptor returns the provider's capabilities. The endpoint rate limits
// by IP aggressively, so dispatch is kept to one worker with small batches.
func (p *Provider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:       ID,
		Name:     "Microsoft Bing",
		Category: translator.CategoryFree,
		Tuning: translator.Tuning{
			BatchSize:        5,
			MaxChars:         5000,
			Workers:          1,
			RequestDelay:     500 * time.Millisecond,
			FailureThreshold: 3,
		},
	}
}

// Translate translates text from source to target language
func (p *Provider) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	out, err := p.translate(ctx, text, source, target)
	if translator.IsKind(err, translator.KindAuth) {
		// The token may have been revoked early; refresh once
		p.invalidate()
		out, err = p.translate(ctx, text, source, target)
	}
	return out, err
}

func (p *Provider) translate(ctx context.Context, text, source, target string) (string, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return "", err
	}

	req := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("api-version", "3.0").
		SetQueryParam("to", language(target)).
		SetBody([]map[string]string{{"Text": text}})

	if from := language(source); from != "" {
		req.SetQueryParam("from", from)
	}

	rr, err := req.Post(p.translateURL)
	if err != nil {
		return "", translator.Classify(ID, err)
	}

	if rr.IsError() {
		return "", classify(rr.StatusCode(), rr.String())
	}

	out := gjson.Get(rr.String(), "0.translations.0.text")
	if !out.Exists() {
		return "", translator.Errorf(translator.KindTransient, "bing: reply has no translation")
	}

	return out.String(), nil
}

// accessToken returns the cached token, fetching a new one when it expired.
// Concurrent callers share one fetch; the fetch is detached from any single
// caller so cancelling one request never fails the others waiting on it.
func (p *Provider) accessToken(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	ch := p.refresh.DoChan("token", func() (any, error) {
		if token, ok := p.cached(); ok {
			return token, nil
		}
		return p.fetchToken(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", translator.Classify(ID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// fetchToken requests a new token and caches it. The client timeout bounds it.
func (p *Provider) fetchToken(ctx context.Context) (string, error) {
	rr, err := p.http.R().SetContext(ctx).Get(p.authURL)
	if err != nil {
		return "", translator.Classify(ID, err)
	}
	if rr.IsError() {
		return "", translator.FromStatus(ID, rr.StatusCode(), fmt.Errorf("bing auth: %s", rr.Status()))
	}

	token := strings.TrimSpace(rr.String())
	if token == "" {
		return "", translator.Errorf(translator.KindAuth, "bing auth: empty token")
	}

	p.mu.Lock()
	p.token = token
	p.expires = time.Now().Add(p.ttl)
	p.mu.Unlock()

	return token, nil
}

func (p *Provider) cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == "" || !time.Now().Before(p.expires) {
		return "", false
	}
	return p.token, true
}

func (p *Provider) invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

// classify maps an error reply. The body carries a six digit code whose
// first three digits repeat the HTTP status.
func classify(status int, body string) error {
	code := gjson.Get(body, "error.code").Int()
	msg := gjson.Get(body, "error.message").String()
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}

	err := &translator.Error{Kind: translator.KindTransient, Provider: ID, StatusCode: status, Err: fmt.Errorf("bing: %s", msg)}

	switch {
	case code == 400035 || code == 400036:
		err.Kind = translator.KindLanguagePairUnsupported
	case code/1000 == 401 || status == 401 || status == 403:
		err.Kind = translator.KindAuth
	case code/1000 == 429 || status == 429:
		err.Kind = translator.KindRateLimited
	case status == 400:
		err.Kind = translator.KindValidation
	}

	return err
}

// language maps a language code to the form the endpoint expects; auto
// detection is requested by omitting the source
func language(code string) string {
	switch strings.ToLower(code) {
	case "", translator.SourceAuto:
		return ""
	case "zh", "zh-cn":
		return "zh-Hans"
	case "zh-tw":
		return "zh-Hant"
	case "iw":
		return "he"
	case "no":
		return "nb"
	case "tl":
		return "fil"
	}
	return code
}
