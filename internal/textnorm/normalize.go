// Package textnorm canonicalizes extracted text before analysis, chunking and search.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Normalized is the canonical form of a text together with the facts derived from it.
type Normalized struct {
	Text          string
	Shadow        string // Diacritic-stripped, folded copy used for lexical matching
	Language      domain.Language
	HasDiacritics bool
	HasArabic     bool
	Runes         int
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\v]+`)
	trailing     = regexp.MustCompile(`(?m) +$`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// directionality and invisible formatting characters dropped from logical text
var invisible = runes.Predicate(func(r rune) bool {
	switch {
	case r == '\u200b', r == '\u200e', r == '\u200f', r == '\u061c', r == '\ufeff', r == '\u00ad':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
})

var cleanup = transform.Chain(runes.Remove(invisible), runes.Map(foldPresentationForm), norm.NFC)

// Normalize canonicalizes raw text. It fails only when raw is not decodable text.
func Normalize(raw string, hint domain.Language) (Normalized, error) {
	if !utf8.ValidString(raw) {
		return Normalized{}, domain.NewUnsupportedEncodingError("input is not valid UTF-8")
	}
	if strings.ContainsRune(raw, 0) {
		return Normalized{}, domain.NewUnsupportedEncodingError("input contains NUL bytes")
	}

	text, _, err := transform.String(cleanup, raw)
	if err != nil {
		return Normalized{}, domain.NewDomainErrorWithCause(domain.ErrCodeUnsupportedEncoding, "unicode normalization failed", err)
	}
	text = cleanWhitespace(text)

	lang := DetectLanguage(text)
	if lang == domain.LanguageUnknown && hint != "" {
		lang = hint
	}

	return Normalized{
		Text:          text,
		Shadow:        Shadow(text),
		Language:      lang,
		HasDiacritics: HasDiacritics(text),
		HasArabic:     ArabicRatio(text) >= arabicPresenceRatio,
		Runes:         utf8.RuneCountInString(text),
	}, nil
}

// NormalizeBytes decodes raw bytes and normalizes the result.
func NormalizeBytes(raw []byte, hint domain.Language) (Normalized, error) {
	text, err := Decode(raw)
	if err != nil {
		return Normalized{}, err
	}
	return Normalize(text, hint)
}

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\f", "\n\f\n")
	s = spaceRun.ReplaceAllString(s, " ")
	s = trailing.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n ", "\n")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimFunc(s, unicode.IsSpace)
}

// foldPresentationForm maps Arabic presentation forms (common in PDF output) to base letters.
func foldPresentationForm(r rune) rune {
	if (r < 0xFB50 || r > 0xFDFF) && (r < 0xFE70 || r > 0xFEFF) {
		return r
	}
	folded := norm.NFKC.String(string(r))
	if utf8.RuneCountInString(folded) != 1 {
		// Ligatures such as U+FDF2 expand to several letters; keep them as is.
		return r
	}
	fr, _ := utf8.DecodeRuneInString(folded)
	return fr
}
