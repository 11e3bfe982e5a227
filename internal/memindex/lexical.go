package memindex

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// lexicalIndex scores chunks by log-scaled term frequency times smoothed inverse document
// frequency. Callers hold the Index lock.
type lexicalIndex struct {
	terms map[string]map[string]int // chunk id -> term -> count
	df    map[string]int
}

func newLexicalIndex() *lexicalIndex {
	return &lexicalIndex{
		terms: make(map[string]map[string]int),
		df:    make(map[string]int),
	}
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func (l *lexicalIndex) add(id, text string) {
	l.remove(id)
	tf := make(map[string]int)
	for _, tok := range tokenize(text) {
		tf[tok]++
	}
	for tok := range tf {
		l.df[tok]++
	}
	l.terms[id] = tf
}

func (l *lexicalIndex) remove(id string) {
	tf, ok := l.terms[id]
	if !ok {
		return
	}
	for tok := range tf {
		if l.df[tok]--; l.df[tok] <= 0 {
			delete(l.df, tok)
		}
	}
	delete(l.terms, id)
}

func (l *lexicalIndex) score(query string) map[string]float64 {
	qterms := make(map[string]struct{})
	for _, tok := range tokenize(query) {
		qterms[tok] = struct{}{}
	}

	n := float64(len(l.terms))
	scores := make(map[string]float64)
	for tok := range qterms {
		df := l.df[tok]
		if df == 0 {
			continue
		}
		idf := math.Log((1+n)/(1+float64(df))) + 1
		for id, tf := range l.terms {
			if c := tf[tok]; c > 0 {
				scores[id] += (1 + math.Log(float64(c))) * idf
			}
		}
	}
	return scores
}
