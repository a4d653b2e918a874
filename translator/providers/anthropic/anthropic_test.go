package anthropic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/providers/anthropic"
	"github.com/ownlingo/transmux/translator/retry"
)

func TestDefaultConfig(t *testing.T) {
	config := anthropic.DefaultConfig("test-api-key")

	if config.APIKey != "test-api-key" {
		t.Errorf("expected API key 'test-api-key', got %q", config.APIKey)
	}

	if config.Model == "" {
		t.Error("expected default model to be set")
	}

	if config.TPM <= 0 {
		t.Error("expected TPM > 0")
	}

	if config.RPM <= 0 {
		t.Error("expected RPM > 0")
	}

	if config.RetryConfig == nil {
		t.Error("expected retry config to be set")
	}
}

func TestNewProvider(t *testing.T) {
	config := anthropic.DefaultConfig("test-api-key")
	provider := anthropic.NewProvider(config)

	if provider == nil {
		t.Fatal("expected provider to be created")
	}

	if d := provider.Descriptor(); d.ID != "anthropic" || d.Category != translator.CategoryAI {
		t.Errorf("unexpected descriptor: %+v", d)
	}
}

func TestNewProviderPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when creating provider with nil config")
		}
	}()

	anthropic.NewProvider(nil)
}

func newTestProvider(t *testing.T, status int, body string) *anthropic.Provider {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	config := anthropic.DefaultConfig("test-api-key")
	config.BaseURL = srv.URL
	config.RetryConfig = &retry.Config{MaxRetries: 0}

	return anthropic.NewProvider(config)
}

func TestTranslate(t *testing.T) {
	provider := newTestProvider(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"Bonjour"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":2}}`)

	got, err := provider.Translate(context.Background(), "Hello", "en", "fr", translator.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", got)
	}
}

func TestTranslateAuthError(t *testing.T) {
	provider := newTestProvider(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	_, err := provider.Translate(context.Background(), "Hello", "en", "fr", translator.Options{})
	if !translator.IsKind(err, translator.KindAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
}
