package categorize

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// tokenPattern matches terms of two or more word characters
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer turns a line of text into a TF-IDF weighted feature vector over
// a vocabulary learned from the sample corpus
type Vectorizer struct {
	index map[string]int
	terms []string
	idf   []float64
}

// tokenize lowercases the text, strips accents and splits it into terms
func tokenize(text string) []string {
	return tokenPattern.FindAllString(stripAccents(strings.ToLower(text)), -1)
}

// stripAccents removes combining marks after NFD normalization
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fitVectorizer learns the vocabulary and smoothed inverse document
// frequencies of docs. Terms are indexed in lexicographic order.
func fitVectorizer(docs []string) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range tokenize(doc) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		index: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
	}
	for i, t := range terms {
		v.index[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return v
}

// Dim returns the number of features produced by Transform
func (v *Vectorizer) Dim() int {
	return len(v.terms)
}

// Terms returns the learned vocabulary in feature order
func (v *Vectorizer) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Transform returns the L2-normalized TF-IDF vector of text. Terms outside
// the vocabulary are ignored, so text with no known terms yields a zero
// vector.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.terms))
	for _, tok := range tokenize(text) {
		if i, ok := v.index[tok]; ok {
			vec[i]++
		}
	}

	var sum float64
	for i, tf := range vec {
		if tf == 0 {
			continue
		}
		vec[i] = tf * v.idf[i]
		sum += vec[i] * vec[i]
	}
	if sum == 0 {
		return vec
	}

	length := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= length
	}
	return vec
}
