package chunking

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// graphemeBounds marks every rune offset of text that starts a grapheme cluster,
// plus the end offset. A cut at an unmarked offset would split a cluster such as
// an Arabic letter and its harakat.
func graphemeBounds(text string, n int) []bool {
	bounds := make([]bool, n+1)
	pos := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		bounds[pos] = true
		pos += len(g.Runes())
	}
	bounds[n] = true
	return bounds
}

// snapBack moves pos down to the nearest cluster boundary above floor. When the whole
// range is a single cluster it moves forward instead, so the result always makes progress.
func snapBack(bounds []bool, pos, floor int) int {
	for p := pos; p > floor; p-- {
		if bounds[p] {
			return p
		}
	}
	for p := pos + 1; p < len(bounds); p++ {
		if bounds[p] {
			return p
		}
	}
	return len(bounds) - 1
}

// snapForward moves pos up to the nearest cluster boundary.
func snapForward(bounds []bool, pos int) int {
	for p := pos; p < len(bounds); p++ {
		if bounds[p] {
			return p
		}
	}
	return len(bounds) - 1
}

func isSentenceTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '…', '。':
		return true
	}
	return false
}

// splitPoint picks where to cut rs between lo and limit (exclusive of lo, inclusive of limit).
// It prefers the last sentence boundary at or after minEnd, then the last whitespace at or
// after minEnd, then the last grapheme boundary at or before limit.
func splitPoint(rs []rune, bounds []bool, lo, limit, minEnd int) int {
	if limit >= len(rs) {
		return len(rs)
	}
	minEnd = max(minEnd, lo+1)
	if minEnd > limit {
		minEnd = limit
	}

	for p := limit; p >= minEnd; p-- {
		if isSentenceCut(rs, p) && bounds[p] {
			return p
		}
	}
	for p := limit; p >= minEnd; p-- {
		if unicode.IsSpace(rs[p-1]) && bounds[p] {
			return p
		}
	}
	return snapBack(bounds, limit, lo)
}

// isSentenceCut reports whether a cut at p falls right after a sentence: after a newline,
// or after the whitespace that follows a terminal punctuation mark.
func isSentenceCut(rs []rune, p int) bool {
	if p <= 0 || p > len(rs) {
		return false
	}
	if rs[p-1] == '\n' {
		return true
	}
	if p < 2 || !unicode.IsSpace(rs[p-1]) {
		return false
	}
	prev := rs[p-2]
	if prev == '"' || prev == '\'' || prev == ')' || prev == '»' || prev == '”' {
		if p < 3 {
			return false
		}
		prev = rs[p-3]
	}
	return isSentenceTerminal(prev)
}
