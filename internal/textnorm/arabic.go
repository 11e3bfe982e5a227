package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/cloo-solutions/docrag/internal/domain"
)

const (
	tatweel = '\u0640'

	// arabicPresenceRatio is the share of Arabic letters above which a text counts as containing Arabic.
	arabicPresenceRatio = 0.1
	// dominantScriptRatio is the share a script needs to be the document's primary language.
	dominantScriptRatio = 0.8
)

// IsDiacritic reports whether r is an Arabic harakah (vowel mark, shadda, sukun, superscript alef).
func IsDiacritic(r rune) bool {
	return (r >= '\u064b' && r <= '\u065f') || r == '\u0670'
}

// IsArabic reports whether r belongs to one of the Arabic script blocks.
func IsArabic(r rune) bool {
	switch {
	case r >= '\u0600' && r <= '\u06ff':
		return true
	case r >= '\u0750' && r <= '\u077f':
		return true
	case r >= '\u08a0' && r <= '\u08ff':
		return true
	case r >= '\ufb50' && r <= '\ufdff':
		return true
	case r >= '\ufe70' && r <= '\ufeff':
		return true
	}
	return false
}

// HasDiacritics reports whether s contains any Arabic diacritic mark.
func HasDiacritics(s string) bool {
	return strings.IndexFunc(s, IsDiacritic) >= 0
}

var stripMarks = runes.Remove(runes.Predicate(func(r rune) bool {
	return IsDiacritic(r) || r == tatweel
}))

// StripDiacritics removes harakat and tatweel and leaves every other rune untouched.
func StripDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

func foldLetter(r rune) rune {
	switch r {
	case '\u0622', '\u0623', '\u0625', '\u0671': // alef with madda, hamza above, hamza below, wasla
		return '\u0627'
	case '\u0649': // alef maqsura
		return '\u064a'
	}
	return unicode.ToLower(r)
}

var shadowFold = transform.Chain(stripMarks, runes.Map(foldLetter))

// Shadow returns the lexical-matching form of s: diacritics and tatweel removed,
// alef and yeh variants folded, letters lower-cased. Two spellings of the same word
// that differ only in vocalization share a shadow.
func Shadow(s string) string {
	out, _, err := transform.String(shadowFold, s)
	if err != nil {
		return strings.ToLower(StripDiacritics(s))
	}
	return out
}

// ArabicRatio returns the share of letters in s that are Arabic script.
func ArabicRatio(s string) float64 {
	arabic, _, letters := countScripts(s)
	if letters == 0 {
		return 0
	}
	return float64(arabic) / float64(letters)
}

// DetectLanguage classifies s by the letter share of Arabic and Latin script.
func DetectLanguage(s string) domain.Language {
	arabic, latin, letters := countScripts(s)
	if letters == 0 {
		return domain.LanguageUnknown
	}

	ar := float64(arabic) / float64(letters)
	la := float64(latin) / float64(letters)
	switch {
	case ar >= dominantScriptRatio:
		return domain.LanguageArabic
	case la >= dominantScriptRatio:
		return domain.LanguageEnglish
	case ar >= arabicPresenceRatio && la >= arabicPresenceRatio:
		return domain.LanguageMixed
	}
	return domain.LanguageUnknown
}

func countScripts(s string) (arabic, latin, letters int) {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case IsArabic(r):
			arabic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	return arabic, latin, letters
}
