package langswap

import (
	"unicode"

	"golang.org/x/text/language"
)

// Only scripts that pin down a small set of languages take part in the
// heuristic. Latin and Cyrillic are shared by too many languages.
var distinctiveScripts = map[string][]*unicode.RangeTable{
	"Arab": {unicode.Arabic},
	"Hebr": {unicode.Hebrew},
	"Hans": {unicode.Han},
	"Hant": {unicode.Han},
	"Jpan": {unicode.Hiragana, unicode.Katakana, unicode.Han},
	"Kore": {unicode.Hangul, unicode.Han},
	"Thai": {unicode.Thai},
	"Grek": {unicode.Greek},
	"Deva": {unicode.Devanagari},
	"Geor": {unicode.Georgian},
	"Armn": {unicode.Armenian},
}

// dominance is the share of letters that must belong to the script
const dominance = 0.6

// MatchesScript reports whether text is predominantly written in the likely
// script of the target language
func MatchesScript(text, target string) bool {
	if IsAuto(target) {
		return false
	}

	tag, err := language.Parse(target)
	if err != nil {
		return false
	}

	script, conf := tag.Script()
	if conf == language.No {
		return false
	}

	tables, ok := distinctiveScripts[script.String()]
	if !ok {
		return false
	}

	var letters, inScript, kana, hangul int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.In(r, tables...) {
			inScript++
		}
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			kana++
		}
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}

	if letters == 0 || float64(inScript)/float64(letters) < dominance {
		return false
	}

	// Han alone does not separate Chinese, Japanese and Korean
	switch script.String() {
	case "Jpan":
		return kana > 0
	case "Kore":
		return hangul > 0
	case "Hans", "Hant":
		return kana == 0 && hangul == 0
	}

	return true
}
