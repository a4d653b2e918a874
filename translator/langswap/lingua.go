package langswap

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

const (
	// MinTextLengthForDetection is the shortest text considered reliable
	MinTextLengthForDetection = 7
	// MaxTextLengthForDetection bounds the text handed to the detector
	MaxTextLengthForDetection = 256
	// MinConfidence is the top confidence needed for a reliable result
	MinConfidence = 0.5
)

// DefaultLanguages are the languages the lingua detector distinguishes
var DefaultLanguages = []lingua.Language{
	lingua.English, lingua.German, lingua.French, lingua.Spanish, lingua.Italian,
	lingua.Portuguese, lingua.Dutch, lingua.Polish, lingua.Russian, lingua.Ukrainian,
	lingua.Turkish, lingua.Arabic, lingua.Persian, lingua.Hebrew, lingua.Hindi,
	lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Vietnamese, lingua.Indonesian,
}

// LinguaDetector detects languages with lingua-go
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector for languages, or DefaultLanguages
// when none are given. Models load lazily on first use.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &LinguaDetector{detector: detector}
}

// Detect returns the ISO 639-1 code of the most likely language
func (d *LinguaDetector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if runeLen(text) < MinTextLengthForDetection {
		return "", false
	}

	text = truncate(text, MaxTextLengthForDetection)

	values := d.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "", false
	}

	top := values[0]
	code := strings.ToLower(top.Language().IsoCode639_1().String())

	return code, top.Value() >= MinConfidence
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
