// Package langswap decides whether to swap source and target languages
// before a provider call, so text already in the target language is sent
// back to a meaningful language instead of being echoed.
package langswap

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/ownlingo/transmux/translator"
)

// DefaultFallback is used when no configured language is usable
const DefaultFallback = "en"

// SampleLimit bounds the representative text handed to detection
const SampleLimit = 500

// Detector guesses the language of a text
type Detector interface {
	// Detect returns a base language code and whether the guess is reliable
	Detect(text string) (lang string, reliable bool)
}

// Config holds the configured defaults consulted when picking a new target
type Config struct {
	OriginalSource string // Configured default source, may be "auto"
	OriginalTarget string // Configured default target
	Fallback       string // Defaults to English
}

// Result is the outcome of Resolve
type Result struct {
	Source   string
	Target   string
	Swapped  bool
	Detected string // Empty when nothing was detected
	Reliable bool   // Detected came from a reliable detector result
}

// Swapper applies the swap rules. It holds no per-request state.
type Swapper struct {
	detector Detector
	config   Config
}

// New creates a swapper; a nil detector leaves only the script heuristic
func New(detector Detector, config Config) *Swapper {
	if config.Fallback == "" {
		config.Fallback = DefaultFallback
	}
	return &Swapper{detector: detector, config: config}
}

// Resolve returns the languages to use for translating text. It is meant to
// run once per request on representative text.
func (s *Swapper) Resolve(text, source, target string) Result {
	res := Result{Source: source, Target: target}
	if strings.TrimSpace(text) == "" || target == "" {
		return res
	}

	if s.detector != nil {
		if lang, reliable := s.detector.Detect(text); reliable && lang != "" {
			res.Detected = Base(lang)
			res.Reliable = true
			if res.Detected == Base(target) {
				s.swap(&res, source, target)
			}
			return res
		}
	}

	if MatchesScript(text, target) {
		res.Detected = Base(target)
		s.swap(&res, source, target)
	}

	return res
}

func (s *Swapper) swap(res *Result, source, target string) {
	replacement := s.replacement(source, Base(target))
	if replacement == "" || Base(replacement) == Base(target) {
		return
	}

	res.Source = target
	res.Target = replacement
	res.Swapped = true
}

// replacement picks the new target by priority: declared source, configured
// original source, configured original target, then the fallback
func (s *Swapper) replacement(source, detected string) string {
	if !IsAuto(source) {
		return source
	}
	if !IsAuto(s.config.OriginalSource) {
		return s.config.OriginalSource
	}
	if s.config.OriginalTarget != "" && Base(s.config.OriginalTarget) != detected {
		return s.config.OriginalTarget
	}
	return s.config.Fallback
}

// IsAuto reports whether lang requests auto detection
func IsAuto(lang string) bool {
	return lang == "" || strings.EqualFold(lang, translator.SourceAuto)
}

// Base normalizes a language code to its base language ("zh-CN" -> "zh")
func Base(code string) string {
	if IsAuto(code) {
		return translator.SourceAuto
	}

	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}

	base, _ := tag.Base()
	return base.String()
}

// Sample joins texts into a representative detection sample of at most
// SampleLimit runes
func Sample(texts []string) string {
	var b strings.Builder
	n := 0

	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		for _, r := range t {
			if n >= SampleLimit {
				return b.String()
			}
			b.WriteRune(r)
			n++
		}
		if n >= SampleLimit {
			break
		}
	}

	return b.String()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
