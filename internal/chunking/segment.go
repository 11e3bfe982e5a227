package chunking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// UnitKind classifies a structural unit
type UnitKind string

const (
	UnitHeading   UnitKind = "heading"
	UnitParagraph UnitKind = "paragraph"
	UnitMarker    UnitKind = "marker"
)

// Unit is a structural unit of a document. Units returned by Segment tile the text:
// each unit's span runs from its first line to the start of the next unit, so trailing
// blank lines belong to the unit above them.
type Unit struct {
	Kind     UnitKind
	Start    int // rune offset, inclusive
	End      int // rune offset, exclusive
	Text     string
	Lines    int // non-blank lines
	Level    int // heading depth, 0 for other kinds
	Numbered bool
}

// Len returns the unit's span length in runes
func (u Unit) Len() int {
	return u.End - u.Start
}

var (
	markdownHeading = regexp.MustCompile(`^(#{1,6})\s+\S`)
	numberedPrefix  = regexp.MustCompile(`^(?:(\d+(?:\.\d+)*)[.)]|(\d+(?:\.\d+)+)|([٠-٩]+(?:\.[٠-٩]+)*)[.)]?|[IVXLC]+[.)])\s+\S`)
	sectionKeyword  = regexp.MustCompile(`(?i)^(?:chapter|section|part|article|appendix|الفصل|الباب|المادة|القسم|الجزء)\s+\S`)
	ruleLine        = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,}|={3,})$`)
)

const caselessHeadingMaxWords = 8

type line struct {
	start, end, next int
}

// Segment splits normalized text into headings, paragraphs and section markers.
// It is the single boundary-detection routine behind both the structure analyzer
// and the dynamic chunker.
func Segment(text string, rules domain.BoundaryRules) []Unit {
	return segmentRunes([]rune(text), rules)
}

func segmentRunes(rs []rune, rules domain.BoundaryRules) []Unit {
	lines := splitLines(rs)
	blank := make([]bool, len(lines))
	for i, ln := range lines {
		blank[i] = isBlank(rs[ln.start:ln.end])
	}

	var units []Unit
	open := -1
	for i, ln := range lines {
		raw := string(rs[ln.start:ln.end])
		content := strings.TrimSpace(raw)
		standalone := i == 0 || blank[i-1] || open < 0
		followedByBlank := i+1 == len(lines) || blank[i+1]

		switch {
		case isMarker(raw, content, rules):
			units = append(units, Unit{Kind: UnitMarker, Start: ln.start, End: ln.next, Text: content, Lines: 1})
			open = -1
		case blank[i]:
			if len(units) > 0 {
				units[len(units)-1].End = ln.next
			}
			open = -1
		case isHeadingLine(content, rules, standalone, followedByBlank):
			level, numbered := headingLevel(content)
			units = append(units, Unit{
				Kind:     UnitHeading,
				Start:    ln.start,
				End:      ln.next,
				Text:     content,
				Lines:    1,
				Level:    level,
				Numbered: numbered,
			})
			open = -1
		case open >= 0:
			units[open].End = ln.next
			units[open].Text += "\n" + content
			units[open].Lines++
		default:
			units = append(units, Unit{Kind: UnitParagraph, Start: ln.start, End: ln.next, Text: content, Lines: 1})
			open = len(units) - 1
		}
	}

	if len(units) == 0 {
		if len(rs) == 0 {
			return nil
		}
		return []Unit{{Kind: UnitParagraph, Start: 0, End: len(rs), Text: strings.TrimSpace(string(rs))}}
	}
	units[0].Start = 0
	return units
}

func splitLines(rs []rune) []line {
	var lines []line
	start := 0
	for i, r := range rs {
		if r == '\n' {
			lines = append(lines, line{start: start, end: i, next: i + 1})
			start = i + 1
		}
	}
	if start < len(rs) {
		lines = append(lines, line{start: start, end: len(rs), next: len(rs)})
	}
	return lines
}

func isBlank(rs []rune) bool {
	for _, r := range rs {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

func isMarker(raw, content string, rules domain.BoundaryRules) bool {
	if strings.ContainsRune(raw, '\f') {
		return true
	}
	if content == "" {
		return false
	}
	if ruleLine.MatchString(content) {
		return true
	}
	for _, m := range rules.SectionMarkers {
		if m != "" && content == strings.TrimSpace(m) {
			return true
		}
	}
	return false
}

// isHeadingLine applies the heading heuristics: a markdown heading, or a short standalone
// line followed by a blank line that is numbered, title-cased, or a short caseless phrase.
func isHeadingLine(content string, rules domain.BoundaryRules, standalone, followedByBlank bool) bool {
	if content == "" || utf8.RuneCountInString(content) > rules.HeadingMaxRunes {
		return false
	}
	if markdownHeading.MatchString(content) {
		return true
	}
	if !standalone || !followedByBlank {
		return false
	}
	if numberedPrefix.MatchString(content) || sectionKeyword.MatchString(content) {
		return true
	}
	if endsWithTerminal(content) {
		return false
	}
	return isTitleCase(content) || isCaselessPhrase(content)
}

func headingLevel(content string) (int, bool) {
	if m := markdownHeading.FindStringSubmatch(content); m != nil {
		return len(m[1]), false
	}
	if m := numberedPrefix.FindStringSubmatch(content); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				return strings.Count(g, ".") + 1, true
			}
		}
		return 1, true
	}
	if sectionKeyword.MatchString(content) {
		return 1, true
	}
	return 1, false
}

func endsWithTerminal(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	switch r {
	case '.', '!', '?', ',', ';', '؟', '،', '؛', '…':
		return true
	}
	return false
}

// isTitleCase reports whether every word longer than three letters starts upper-case.
func isTitleCase(s string) bool {
	significant := 0
	for _, w := range strings.Fields(s) {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsLetter(first) || utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if !unicode.IsUpper(first) {
			return false
		}
		significant++
	}
	return significant > 0
}

// isCaselessPhrase matches short lines in scripts without letter case, such as Arabic.
func isCaselessPhrase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > caselessHeadingMaxWords {
		return false
	}
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsUpper(r) || unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters > 0
}

// HeadingTitle strips markdown markers from a heading unit's text
func HeadingTitle(u Unit) string {
	return strings.TrimSpace(strings.TrimLeft(u.Text, "#"))
}
