// Package google translates through the free Google Translate web endpoint.
package google

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/ownlingo/transmux/translator"
)

// ID is the registry identifier of the Google provider
const ID = "google"

// DefaultBaseURL is the free translate endpoint
const DefaultBaseURL = "https://translate.googleapis.com/translate_a/single"

// Config holds Google provider configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default Google configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: 20 * time.Second,
	}
}

// Provider implements translator.Provider for Google Translate
type Provider struct {
	http    *resty.Client
	baseURL string
}

// NewProvider creates a new Google provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Provider{
		http:    resty.New().SetTimeout(config.Timeout),
		baseURL: baseURL,
	}
}

// Descriptor returns the provider's capabilities
func (p *Provider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:                 ID,
		Name:               "Google Translate",
		SupportsDictionary: true,
		Category:           translator.CategoryFree,
		Tuning:             translator.DefaultTuning(translator.CategoryFree),
	}
}

// Translate translates text from source to target language
func (p *Provider) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", language(source))
	params.Set("tl", language(target))
	params.Add("dt", "t")
	if opts.Mode == translator.ModeDictionary {
		params.Add("dt", "bd")
	}

	// POST keeps long batches out of the URL
	rr, err := p.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		SetFormData(map[string]string{"q": text}).
		Post(p.baseURL)
	if err != nil {
		return "", translator.Classify(ID, err)
	}

	if rr.IsError() {
		err := fmt.Errorf("google translate: %s; body: %s", rr.Status(), abbreviate(rr.String(), 200))
		if rr.StatusCode() == 400 {
			return "", &translator.Error{Kind: translator.KindLanguagePairUnsupported, Provider: ID, StatusCode: 400, Err: err}
		}
		return "", translator.FromStatus(ID, rr.StatusCode(), err)
	}

	return parse(rr.String(), opts.Mode)
}

// parse reads the nested array reply: sentences live in [0][i][0], the
// dictionary in [1][i] as [part of speech, [terms...]]
func parse(body string, mode translator.Mode) (string, error) {
	if !gjson.Valid(body) {
		return "", translator.Errorf(translator.KindTransient, "google translate: malformed reply")
	}

	var b strings.Builder
	for _, s := range gjson.Get(body, "0.#.0").Array() {
		b.WriteString(s.String())
	}

	if b.Len() == 0 {
		return "", translator.Errorf(translator.KindTransient, "google translate: empty reply")
	}

	if mode == translator.ModeDictionary {
		gjson.Get(body, "1").ForEach(func(_, entry gjson.Result) bool {
			var terms []string
			for _, t := range entry.Get("1").Array() {
				terms = append(terms, t.String())
			}
			if len(terms) > 0 {
				fmt.Fprintf(&b, "\n%s: %s", entry.Get("0").String(), strings.Join(terms, ", "))
			}
			return true
		})
	}

	return b.String(), nil
}

// language maps a language code to the form the endpoint expects
func language(code string) string {
	switch strings.ToLower(code) {
	case "", translator.SourceAuto:
		return translator.SourceAuto
	case "zh", "zh-hans":
		return "zh-CN"
	case "zh-hant":
		return "zh-TW"
	}
	return code
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
