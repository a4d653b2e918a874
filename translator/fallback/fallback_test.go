package fallback_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/fallback"
)

// Mock translator for testing
type mockTranslator struct {
	id       string
	err      error
	reliable bool
	calls    int
	closed   bool
}

func (m *mockTranslator) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:               m.id,
		Name:             m.id,
		ReliableJSONMode: m.reliable,
		Category:         translator.CategoryFree,
		Tuning:           translator.DefaultTuning(translator.CategoryFree),
	}
}

func (m *mockTranslator) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.id + ": " + text, nil
}

func (m *mockTranslator) Close() error {
	m.closed = true
	return nil
}

func TestNewChain(t *testing.T) {
	provider1 := &mockTranslator{id: "provider1", reliable: true}
	provider2 := &mockTranslator{id: "provider2"}

	chain := fallback.NewChain("auto", provider1, provider2)
	if chain == nil {
		t.Fatal("expected chain to be created")
	}

	d := chain.Descriptor()
	if d.ID != "auto" {
		t.Errorf("expected id 'auto', got %q", d.ID)
	}
	if !strings.Contains(d.Name, "provider1") {
		t.Errorf("expected chain name to contain 'provider1', got %q", d.Name)
	}
	if d.ReliableJSONMode {
		t.Error("expected chain with an unreliable member to be unreliable")
	}
}

func TestNewChainPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when creating chain with no providers")
		}
	}()

	fallback.NewChain("auto")
}

func TestChainTranslateSuccess(t *testing.T) {
	provider := &mockTranslator{id: "test-provider"}
	chain := fallback.NewChain("auto", provider)

	got, err := chain.Translate(context.Background(), "Hello", "en", "es", translator.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got != "test-provider: Hello" {
		t.Errorf("unexpected translation: %q", got)
	}
}

func TestChainTranslateFallback(t *testing.T) {
	provider1 := &mockTranslator{
		id:  "provider1",
		err: translator.NewError(translator.KindTransient, "provider1", errors.New("provider1 error")),
	}
	provider2 := &mockTranslator{id: "provider2"}
	provider3 := &mockTranslator{id: "provider3"}

	chain := fallback.NewChain("auto", provider1, provider2, provider3)

	got, err := chain.Translate(context.Background(), "Hello", "en", "es", translator.Options{})
	if err != nil {
		t.Fatalf("expected no error after fallback, got %v", err)
	}

	// Should use provider2 since provider1 failed
	if got != "provider2: Hello" {
		t.Errorf("expected provider2 translation, got %q", got)
	}
	if provider3.calls != 0 {
		t.Errorf("expected provider3 to be skipped, got %d calls", provider3.calls)
	}
}

func TestChainTranslateAllFail(t *testing.T) {
	provider1 := &mockTranslator{
		id:  "provider1",
		err: translator.NewError(translator.KindTransient, "provider1", errors.New("error1")),
	}
	provider2 := &mockTranslator{
		id:  "provider2",
		err: translator.NewError(translator.KindLanguagePairUnsupported, "provider2", errors.New("error2")),
	}

	chain := fallback.NewChain("auto", provider1, provider2)

	_, err := chain.Translate(context.Background(), "Hello", "en", "es", translator.Options{})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}

	if !strings.Contains(err.Error(), "all providers failed") {
		t.Errorf("expected 'all providers failed' in error, got: %v", err)
	}

	// The last provider's classification survives the wrapping
	if !translator.IsKind(err, translator.KindLanguagePairUnsupported) {
		t.Errorf("expected language pair kind, got %q", translator.KindOf(err))
	}
}

func TestChainStopsOnCancellation(t *testing.T) {
	provider1 := &mockTranslator{
		id:  "provider1",
		err: translator.NewError(translator.KindUserCancelled, "provider1", context.Canceled),
	}
	provider2 := &mockTranslator{id: "provider2"}

	chain := fallback.NewChain("auto", provider1, provider2)

	_, err := chain.Translate(context.Background(), "Hello", "en", "es", translator.Options{})
	if !translator.IsKind(err, translator.KindUserCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if provider2.calls != 0 {
		t.Error("expected cancellation to stop the chain")
	}
}

func TestChainClose(t *testing.T) {
	provider1 := &mockTranslator{id: "provider1"}
	provider2 := &mockTranslator{id: "provider2"}

	if err := fallback.NewChain("auto", provider1, provider2).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider1.closed || !provider2.closed {
		t.Error("expected every provider to be closed")
	}
}
