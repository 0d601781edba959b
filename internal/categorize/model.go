// Package categorize assigns invoice lines to spend categories.
//
// The primary classifier is a Model built once from a small labeled corpus:
// a TF-IDF vectorizer feeding a multinomial naive Bayes classifier. A Model
// is read-only after Build and may be shared between goroutines.
package categorize

import (
	"fmt"
)

// smoothing is the additive (Laplace) smoothing applied to feature counts
const smoothing = 1.0

// Classifier assigns exactly one category to a line of text
type Classifier interface {
	Categorize(text string) Category
}

// Prediction is the full outcome of classifying one line
type Prediction struct {
	Category   Category
	Confidence float64              // posterior probability of Category
	Scores     map[Category]float64 // posterior probability per trained class
}

// Model is the TF-IDF + naive Bayes category model
type Model struct {
	vectorizer    *Vectorizer
	bayes         *naiveBayes
	minConfidence float64
}

// Option configures a Model
type Option func(*Model)

// WithMinConfidence makes the model answer Other when the best posterior
// probability is below p. Zero disables the check.
func WithMinConfidence(p float64) Option {
	return func(m *Model) {
		m.minConfidence = p
	}
}

// Build fits the vectorizer and classifier on samples. It returns a
// *ConfigurationError if samples is empty, carries an unknown label or has
// no usable terms.
func Build(samples []Sample, opts ...Option) (*Model, error) {
	if len(samples) == 0 {
		return nil, &ConfigurationError{Reason: "no samples"}
	}

	texts := make([]string, len(samples))
	labels := make([]Category, len(samples))
	for i, s := range samples {
		if !s.Label.Valid() {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("sample %d has unknown label %q", i, s.Label)}
		}
		texts[i] = s.Text
		labels[i] = s.Label
	}

	vec := fitVectorizer(texts)
	if vec.Dim() == 0 {
		return nil, &ConfigurationError{Reason: "samples contain no terms"}
	}

	x := make([][]float64, len(texts))
	for i, t := range texts {
		x[i] = vec.Transform(t)
	}

	m := &Model{
		vectorizer: vec,
		bayes:      fitNaiveBayes(x, labels, smoothing),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Vectorizer returns the fitted vectorizer
func (m *Model) Vectorizer() *Vectorizer {
	return m.vectorizer
}

// Classes returns the categories the model was trained on, in canonical order
func (m *Model) Classes() []Category {
	out := make([]Category, len(m.bayes.classes))
	copy(out, m.bayes.classes)
	return out
}

// Predict scores text against every trained class. On an exact score tie the
// class earliest in canonical category order wins. Text without known terms
// falls back to the class priors.
func (m *Model) Predict(text string) Prediction {
	jll := m.bayes.jointLogLikelihood(m.vectorizer.Transform(text))

	best := 0
	for i := 1; i < len(jll); i++ {
		if jll[i] > jll[best] {
			best = i
		}
	}

	probs := posterior(jll)
	scores := make(map[Category]float64, len(probs))
	for i, c := range m.bayes.classes {
		scores[c] = probs[i]
	}

	p := Prediction{
		Category:   m.bayes.classes[best],
		Confidence: probs[best],
		Scores:     scores,
	}
	if m.minConfidence > 0 && p.Confidence < m.minConfidence {
		p.Category = Other
	}
	return p
}

// Categorize implements Classifier
func (m *Model) Categorize(text string) Category {
	return m.Predict(text).Category
}
