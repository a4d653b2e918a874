package langswap_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ownlingo/transmux/translator/langswap"
)

type fixedDetector struct {
	lang     string
	reliable bool
}

func (d fixedDetector) Detect(string) (string, bool) {
	return d.lang, d.reliable
}

func TestResolveNoSwapWhenLanguagesDiffer(t *testing.T) {
	s := langswap.New(fixedDetector{lang: "en", reliable: true}, langswap.Config{})

	res := s.Resolve("Good morning everyone", "auto", "fa")

	assert.False(t, res.Swapped)
	assert.Equal(t, "auto", res.Source)
	assert.Equal(t, "fa", res.Target)
	assert.Equal(t, "en", res.Detected)
}

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name       string
		config     langswap.Config
		source     string
		wantTarget string
	}{
		{
			name:       "declared source wins",
			config:     langswap.Config{OriginalSource: "de", OriginalTarget: "fr"},
			source:     "es",
			wantTarget: "es",
		},
		{
			name:       "configured original source",
			config:     langswap.Config{OriginalSource: "de", OriginalTarget: "fr"},
			source:     "auto",
			wantTarget: "de",
		},
		{
			name:       "configured original target",
			config:     langswap.Config{OriginalSource: "auto", OriginalTarget: "fr"},
			source:     "auto",
			wantTarget: "fr",
		},
		{
			name:       "original target equal to detected falls back to english",
			config:     langswap.Config{OriginalSource: "auto", OriginalTarget: "fa"},
			source:     "auto",
			wantTarget: "en",
		},
		{
			name:       "nothing configured",
			config:     langswap.Config{},
			source:     "",
			wantTarget: "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := langswap.New(fixedDetector{lang: "fa", reliable: true}, tt.config)

			res := s.Resolve("سلام دنیا، حال شما چطور است", tt.source, "fa")

			assert.True(t, res.Swapped)
			assert.Equal(t, "fa", res.Source)
			assert.Equal(t, tt.wantTarget, res.Target)
		})
	}
}

func TestResolveNoSwapWhenReplacementEqualsDetected(t *testing.T) {
	s := langswap.New(fixedDetector{lang: "en", reliable: true}, langswap.Config{})

	res := s.Resolve("Good morning everyone", "auto", "en")

	assert.False(t, res.Swapped)
	assert.Equal(t, "en", res.Target)
}

func TestResolveRegionalTarget(t *testing.T) {
	s := langswap.New(fixedDetector{lang: "zh", reliable: true}, langswap.Config{})

	res := s.Resolve("你好世界", "auto", "zh-CN")

	assert.True(t, res.Swapped)
	assert.Equal(t, "zh-CN", res.Source)
	assert.Equal(t, "en", res.Target)
}

func TestResolveUnreliableFallsBackToScript(t *testing.T) {
	s := langswap.New(fixedDetector{lang: "ar", reliable: false}, langswap.Config{OriginalSource: "de"})

	res := s.Resolve("Привет мир", "auto", "ru")
	assert.False(t, res.Swapped, "cyrillic is not distinctive enough to swap on")

	res = s.Resolve("こんにちは世界", "auto", "ja")
	assert.True(t, res.Swapped)
	assert.Equal(t, "de", res.Target)
	assert.False(t, res.Reliable)
}

func TestResolveWithoutDetector(t *testing.T) {
	s := langswap.New(nil, langswap.Config{})

	res := s.Resolve("Hello world", "auto", "en")
	assert.False(t, res.Swapped)

	res = s.Resolve("", "auto", "fa")
	assert.False(t, res.Swapped)
}

func TestMatchesScript(t *testing.T) {
	tests := []struct {
		text   string
		target string
		want   bool
	}{
		{"مرحبا بالعالم", "ar", true},
		{"سلام دنیا", "fa", true},
		{"שלום עולם", "he", true},
		{"你好世界", "zh", true},
		{"こんにちは世界", "zh", false},
		{"こんにちは世界", "ja", true},
		{"你好世界", "ja", false},
		{"안녕하세요 세계", "ko", true},
		{"Γειά σου κόσμε", "el", true},
		{"สวัสดีชาวโลก", "th", true},
		{"Hello world", "ar", false},
		{"Hello world", "en", false},
		{"1234 !!", "ar", false},
		{"مرحبا", "auto", false},
	}

	for _, tt := range tests {
		t.Run(tt.target+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, langswap.MatchesScript(tt.text, tt.target))
		})
	}
}

func TestBase(t *testing.T) {
	assert.Equal(t, "zh", langswap.Base("zh-CN"))
	assert.Equal(t, "en", langswap.Base("en-US"))
	assert.Equal(t, "fa", langswap.Base("fa"))
	assert.Equal(t, "auto", langswap.Base(""))
	assert.Equal(t, "auto", langswap.Base("AUTO"))
}

func TestSample(t *testing.T) {
	assert.Equal(t, "one two", langswap.Sample([]string{" one ", "", "two"}))

	long := strings.Repeat("a", 400)
	sample := langswap.Sample([]string{long, long})
	assert.Len(t, []rune(sample), langswap.SampleLimit)
}
