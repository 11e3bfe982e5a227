package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/docrag/internal/domain"
)

func TestIsDiacritic(t *testing.T) {
	for _, r := range []rune{'\u064b', '\u064e', '\u0650', '\u0651', '\u0652', '\u0670'} {
		assert.True(t, IsDiacritic(r), "%U", r)
	}
	for _, r := range []rune{'\u0627', '\u0640', 'a', '\u0660'} {
		assert.False(t, IsDiacritic(r), "%U", r)
	}
}

func TestShadow(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"harakat", "كَتَبَ", "كتب"},
		{"tatweel", "ك\u0640\u0640تاب", "كتاب"},
		{"alef variants", "أحمد إلى آخر", "احمد الي اخر"},
		{"latin lower", "Hybrid Search", "hybrid search"},
		{"untouched", "bytes 123", "bytes 123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Shadow(tt.in))
		})
	}
}

func TestShadow_VocalizedAndBareMatch(t *testing.T) {
	assert.Equal(t, Shadow("العربية"), Shadow("الْعَرَبِيَّة"))
	assert.Equal(t, Shadow("مدرسة"), Shadow("مَدْرَسَةٌ"))
}

func TestStripDiacritics_KeepsLetters(t *testing.T) {
	assert.Equal(t, "أحمد", StripDiacritics("أَحْمَد"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.Language
	}{
		{"arabic", "هذا نص عربي قصير", domain.LanguageArabic},
		{"english", "This is a short English text", domain.LanguageEnglish},
		{"mixed", "Retrieval الاسترجاع augmented التوليد", domain.LanguageMixed},
		{"digits only", "2024 - 10", domain.LanguageUnknown},
		{"other script", "Это русский текст", domain.LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.in))
		})
	}
}

func TestArabicRatio(t *testing.T) {
	assert.Equal(t, 0.0, ArabicRatio(""))
	assert.Equal(t, 1.0, ArabicRatio("كتاب"))
	assert.InDelta(t, 0.5, ArabicRatio("ab كت"), 1e-9)
}
