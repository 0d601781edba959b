package categorize

import (
	"math"
	"sort"
)

// naiveBayes is a multinomial naive Bayes classifier over TF-IDF features
type naiveBayes struct {
	classes       []Category  // categories with at least one sample, canonical order
	logPrior      []float64   // log P(class)
	logLikelihood [][]float64 // log P(feature | class), [class][feature]
}

// fitNaiveBayes estimates class priors and Laplace-smoothed feature
// likelihoods from the feature vectors x and their labels y
func fitNaiveBayes(x [][]float64, y []Category, alpha float64) *naiveBayes {
	dim := 0
	if len(x) > 0 {
		dim = len(x[0])
	}

	counts := make(map[Category]int)
	features := make(map[Category][]float64)
	for i, label := range y {
		if _, ok := features[label]; !ok {
			features[label] = make([]float64, dim)
		}
		counts[label]++
		for j, v := range x[i] {
			features[label][j] += v
		}
	}

	classes := make([]Category, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Index() < classes[j].Index()
	})

	nb := &naiveBayes{
		classes:       classes,
		logPrior:      make([]float64, len(classes)),
		logLikelihood: make([][]float64, len(classes)),
	}

	n := float64(len(y))
	for ci, c := range classes {
		nb.logPrior[ci] = math.Log(float64(counts[c]) / n)

		fc := features[c]
		var total float64
		for _, v := range fc {
			total += v
		}
		denom := math.Log(total + alpha*float64(dim))

		ll := make([]float64, dim)
		for j, v := range fc {
			ll[j] = math.Log(v+alpha) - denom
		}
		nb.logLikelihood[ci] = ll
	}

	return nb
}

// jointLogLikelihood returns log P(class) + sum_j x_j log P(feature_j | class)
// for every class
func (nb *naiveBayes) jointLogLikelihood(x []float64) []float64 {
	out := make([]float64, len(nb.classes))
	for ci := range nb.classes {
		score := nb.logPrior[ci]
		ll := nb.logLikelihood[ci]
		for j, v := range x {
			if v != 0 {
				score += v * ll[j]
			}
		}
		out[ci] = score
	}
	return out
}

// posterior normalizes joint log likelihoods into class probabilities
func posterior(jll []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range jll {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	probs := make([]float64, len(jll))
	for i, s := range jll {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
