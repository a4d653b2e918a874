package translator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ownlingo/transmux/translator"
)

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name         string
		mode         translator.Mode
		wantContains []string
	}{
		{
			name:         "basic prompt",
			mode:         translator.ModeSimple,
			wantContains: []string{"professional translator", translator.DelimiterMarker},
		},
		{
			name:         "structured payload",
			mode:         translator.ModeSelectElement,
			wantContains: []string{"JSON array", "same number of objects"},
		},
		{
			name:         "dictionary",
			mode:         translator.ModeDictionary,
			wantContains: []string{"alternative meanings"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := translator.SystemPrompt(tt.mode)

			if prompt == "" {
				t.Fatal("prompt should not be empty")
			}

			for _, want := range tt.wantContains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt should contain %q, got: %s", want, prompt)
				}
			}
		})
	}
}

func TestUserPrompt(t *testing.T) {
	if got := translator.UserPrompt("hi", "auto", "fr"); !strings.HasPrefix(got, "Translate the following text to fr:") {
		t.Errorf("unexpected auto prompt: %q", got)
	}
	if got := translator.UserPrompt("hi", "en", "fr"); !strings.Contains(got, "from en to fr") || !strings.HasSuffix(got, "hi") {
		t.Errorf("unexpected prompt: %q", got)
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []translator.Mode{
		translator.ModeSimple, translator.ModeSelection, translator.ModeDictionary,
		translator.ModeFieldEdit, translator.ModeSubtitle, translator.ModeSelectElement,
	} {
		if !m.Valid() {
			t.Errorf("expected mode %q to be valid", m)
		}
	}

	if translator.Mode("page").Valid() {
		t.Error("expected unknown mode to be invalid")
	}

	if !translator.ModeSelectElement.Structured() || translator.ModeSimple.Structured() {
		t.Error("only select-element mode should be structured")
	}
}

func TestDefaultTuning(t *testing.T) {
	free := translator.DefaultTuning(translator.CategoryFree)
	if free.BatchSize != 8 || free.MaxChars != 8000 || free.Workers != 2 || free.FailureThreshold != 5 {
		t.Errorf("unexpected free tuning: %+v", free)
	}

	ai := translator.DefaultTuning(translator.CategoryAI)
	if ai.BatchSize <= free.BatchSize {
		t.Errorf("expected AI batches larger than %d, got %d", free.BatchSize, ai.BatchSize)
	}
	if ai.Workers != 2 {
		t.Errorf("expected 2 AI workers, got %d", ai.Workers)
	}

	native := translator.DefaultTuning(translator.CategoryBrowserNative)
	if native.Workers != 1 {
		t.Errorf("expected 1 browser-native worker, got %d", native.Workers)
	}
}

func TestTuningMerge(t *testing.T) {
	base := translator.DefaultTuning(translator.CategoryFree)
	merged := base.Merge(translator.Tuning{Workers: 1, RequestDelay: time.Second})

	if merged.Workers != 1 {
		t.Errorf("expected workers 1, got %d", merged.Workers)
	}
	if merged.RequestDelay != time.Second {
		t.Errorf("expected delay 1s, got %v", merged.RequestDelay)
	}
	if merged.BatchSize != base.BatchSize {
		t.Errorf("expected batch size to be kept, got %d", merged.BatchSize)
	}
}

type stubProvider struct{}

func (stubProvider) Descriptor() translator.Descriptor {
	return translator.Descriptor{
		ID:       "stub",
		Category: translator.CategoryFree,
		Tuning:   translator.DefaultTuning(translator.CategoryFree),
	}
}

func (stubProvider) Translate(ctx context.Context, text, source, target string, opts translator.Options) (string, error) {
	return text, nil
}

func TestTune(t *testing.T) {
	p := translator.Tune(stubProvider{}, translator.Tuning{BatchSize: 3, FailureThreshold: 2})

	d := p.Descriptor()
	if d.ID != "stub" {
		t.Errorf("expected id 'stub', got %q", d.ID)
	}
	if d.Tuning.BatchSize != 3 || d.Tuning.FailureThreshold != 2 {
		t.Errorf("overrides not applied: %+v", d.Tuning)
	}
	if d.Tuning.Workers != 2 {
		t.Errorf("expected default workers to survive, got %d", d.Tuning.Workers)
	}

	if same := translator.Tune(stubProvider{}, translator.Tuning{}); same != (stubProvider{}) {
		t.Error("expected empty override to return the provider unchanged")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want translator.ErrorKind
	}{
		{"nil", nil, ""},
		{"classified", translator.NewError(translator.KindAuth, "p", errors.New("denied")), translator.KindAuth},
		{"wrapped", fmt.Errorf("call: %w", translator.NewError(translator.KindRateLimited, "p", nil)), translator.KindRateLimited},
		{"context canceled", fmt.Errorf("do: %w", context.Canceled), translator.KindUserCancelled},
		{"unclassified", errors.New("boom"), translator.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translator.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   translator.ErrorKind
	}{
		{401, translator.KindAuth},
		{403, translator.KindAuth},
		{429, translator.KindRateLimited},
		{400, translator.KindValidation},
		{500, translator.KindTransient},
		{503, translator.KindTransient},
	}

	for _, tt := range tests {
		err := translator.FromStatus("p", tt.status, errors.New("http"))
		if err.Kind != tt.want {
			t.Errorf("status %d: got %q, want %q", tt.status, err.Kind, tt.want)
		}
		if err.StatusCode != tt.status {
			t.Errorf("status %d: status code not kept", tt.status)
		}
	}
}

func TestErrorKindPolicy(t *testing.T) {
	if !translator.KindLanguagePairUnsupported.Fatal() || !translator.KindUserCancelled.Fatal() {
		t.Error("language pair and cancellation must be fatal")
	}
	if translator.KindTransient.Fatal() || translator.KindAuth.Fatal() {
		t.Error("transient and auth must not be fatal")
	}
	if !translator.KindTransient.Retryable() || translator.KindAuth.Retryable() || translator.KindRateLimited.Retryable() {
		t.Error("only transient errors are retryable")
	}
	if translator.KindLanguagePairUnsupported.Rank() <= translator.KindAuth.Rank() ||
		translator.KindAuth.Rank() <= translator.KindTransient.Rank() {
		t.Error("unexpected rank ordering")
	}
}

func TestSplitSegments(t *testing.T) {
	joined := translator.JoinSegments([]string{"one", "two", "three"})
	parts := translator.SplitSegments(joined)

	if len(parts) != 3 || parts[0] != "one" || parts[2] != "three" {
		t.Fatalf("unexpected split: %q", parts)
	}

	// Providers often reflow whitespace around the marker
	reflowed := "uno " + translator.DelimiterMarker + "  dos"
	if parts := translator.SplitSegments(reflowed); len(parts) != 2 || parts[1] != "dos" {
		t.Errorf("unexpected split of reflowed text: %q", parts)
	}
}

func TestRestoreSpacing(t *testing.T) {
	if got := translator.RestoreSpacing("  Hello\n", "Hola"); got != "  Hola\n" {
		t.Errorf("got %q", got)
	}
	if got := translator.RestoreSpacing("Hello", " Hola "); got != "Hola" {
		t.Errorf("got %q", got)
	}

	// Non-breaking and ideographic spaces are kept like ASCII ones
	if got := translator.RestoreSpacing("\u00a0Hello\u3000", "\u3000Hola\u00a0"); got != "\u00a0Hola\u3000" {
		t.Errorf("got %q", got)
	}
}
