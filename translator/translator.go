package translator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines the interface every translation backend adapter implements.
// Adapters only implement the single-call primitive; batching, fallback and
// language swapping live in the engine.
type Provider interface {
	// Descriptor returns the adapter's capabilities and tuning
	Descriptor() Descriptor

	// Translate translates text from source to target language. Cancelling ctx
	// must abort an in-flight call. Failures should be *Error values.
	Translate(ctx context.Context, text, source, target string, opts Options) (string, error)
}

// Options carries per-call context to an adapter
type Options struct {
	Mode                   Mode
	OriginalSourceLanguage string
	OriginalTargetLanguage string
}

// Category groups providers with similar reliability and rate-limit behavior
type Category string

const (
	CategoryFree          Category = "free"
	CategoryAI            Category = "ai"
	CategoryAPI           Category = "api"
	CategoryBrowserNative Category = "browser-native"
)

// Descriptor describes an adapter to the engine
type Descriptor struct {
	ID                 string
	Name               string
	ReliableJSONMode   bool // Adapter preserves delimiter-joined and JSON payloads
	SupportsDictionary bool
	Category           Category
	Tuning             Tuning
}

// Tuning holds the provider-tunable dispatch parameters
type Tuning struct {
	BatchSize        int           // Max segments per batch
	MaxChars         int           // Max characters per batch
	Workers          int           // Concurrent workers per request
	RequestDelay     time.Duration // Delay before each batch call
	FailureThreshold int           // Consecutive batch failures before early exit
}

const (
	DefaultBatchSize        = 8
	DefaultMaxChars         = 8000
	DefaultFailureThreshold = 5
	SourceAuto              = "auto"
)

// DefaultTuning returns the tuning for a provider category
func DefaultTuning(c Category) Tuning {
	t := Tuning{
		BatchSize:        DefaultBatchSize,
		MaxChars:         DefaultMaxChars,
		Workers:          2,
		FailureThreshold: DefaultFailureThreshold,
	}

	switch c {
	case CategoryAI:
		t.BatchSize = 20
		t.MaxChars = 12000
	case CategoryBrowserNative:
		t.Workers = 1
	}

	return t
}

// Merge returns t with every non-zero field of override applied
func (t Tuning) Merge(override Tuning) Tuning {
	if override.BatchSize > 0 {
		t.BatchSize = override.BatchSize
	}
	if override.MaxChars > 0 {
		t.MaxChars = override.MaxChars
	}
	if override.Workers > 0 {
		t.Workers = override.Workers
	}
	if override.RequestDelay > 0 {
		t.RequestDelay = override.RequestDelay
	}
	if override.FailureThreshold > 0 {
		t.FailureThreshold = override.FailureThreshold
	}
	return t
}

// Normalized fills zero fields with the category defaults
func (t Tuning) Normalized(c Category) Tuning {
	return DefaultTuning(c).Merge(t)
}

// Tune wraps p so its descriptor reports the given tuning overrides
func Tune(p Provider, override Tuning) Provider {
	if override == (Tuning{}) {
		return p
	}
	return &tuned{Provider: p, override: override}
}

type tuned struct {
	Provider
	override Tuning
}

func (t *tuned) Descriptor() Descriptor {
	d := t.Provider.Descriptor()
	d.Tuning = d.Tuning.Merge(t.override)
	return d
}

// Close closes the wrapped adapter when it holds resources
func (t *tuned) Close() error {
	if c, ok := t.Provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Mode is the kind of translation surface a request comes from
type Mode string

const (
	ModeSimple        Mode = "simple"
	ModeSelection     Mode = "selection"
	ModeDictionary    Mode = "dictionary"
	ModeFieldEdit     Mode = "field-edit"
	ModeSubtitle      Mode = "subtitle"
	ModeSelectElement Mode = "select-element"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeSimple, ModeSelection, ModeDictionary, ModeFieldEdit, ModeSubtitle, ModeSelectElement:
		return true
	}
	return false
}

// Structured reports whether the request text is a JSON array of segments
func (m Mode) Structured() bool {
	return m == ModeSelectElement
}

// TranslationRequest represents a translation request
type TranslationRequest struct {
	ID             string `json:"id,omitempty"` // Used for cancellation
	Text           string `json:"text"`
	Provider       string `json:"provider"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	Mode           Mode   `json:"mode,omitempty"`
}

// Segment is one unit of text tracked by its position in the request
type Segment struct {
	Index int
	Text  string
}

// State is a request lifecycle state
type State string

const (
	StateValidating  State = "validating"
	StateCacheCheck  State = "cache-check"
	StatePlanning    State = "planning"
	StateRunning     State = "running"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// TranslationResponse represents the outcome of a request
type TranslationResponse struct {
	ID             string    `json:"id"` // Request ID, generated when the request had none
	Success        bool      `json:"success"`
	TranslatedText string    `json:"translatedText,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"errorKind,omitempty"`
	Err            error     `json:"-"`
	State          State     `json:"state"`
	Provider       string    `json:"provider"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	Timestamp      time.Time `json:"timestamp"`
	FromCache      bool      `json:"fromCache,omitempty"`
}

// SystemPrompt returns the translation system prompt for AI adapters
func SystemPrompt(mode Mode) string {
	prompt := "You are a professional translator. Translate the provided text accurately while maintaining the original meaning, tone, and style. Reply with the translation only."

	switch mode {
	case ModeSelectElement:
		prompt += "\n\nIMPORTANT: The input may be a JSON array of objects with a \"text\" field. Translate only the values of \"text\" and return a JSON array with exactly the same number of objects, in the same order, with all other fields unchanged."
	case ModeDictionary:
		prompt += "\n\nThe input is a single word or short phrase. Give the translation followed by its main alternative meanings, one per line."
	case ModeSubtitle:
		prompt += "\n\nThe input is a subtitle line. Keep the translation short enough to be read on screen."
	}

	prompt += "\n\nThe input may contain the separator " + DelimiterMarker + " between independent passages. Keep every separator exactly as it appears and translate each passage on its own."

	return prompt
}

// UserPrompt returns the user message asking an AI adapter to translate text
func UserPrompt(text, source, target string) string {
	if source == "" || strings.EqualFold(source, SourceAuto) {
		return fmt.Sprintf("Translate the following text to %s:\n\n%s", target, text)
	}
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", source, target, text)
}
