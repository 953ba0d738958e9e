// Package keyword implements an offline intent classifier that scores
// candidates by fuzzy similarity against the utterance.
package keyword

import (
	"context"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// DefaultThreshold is the minimum score a candidate needs to be picked.
const DefaultThreshold = 0.6

// Classifier implements ports.IntentClassifier without any remote model.
//
// Each candidate is scored against the label, its definition and its sample
// utterances. Exact containment of a phrase in the utterance scores 1.
// Otherwise the phrase is compared to every same-length word window of the
// utterance. Scores below the threshold fall back to the unsure label.
type Classifier struct {
	threshold float64
	params    *levenshtein.Params
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithThreshold sets the minimum acceptance score.
func WithThreshold(t float64) Option {
	return func(c *Classifier) { c.threshold = t }
}

// New creates a keyword classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		threshold: DefaultThreshold,
		params:    levenshtein.NewParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements ports.IntentClassifier.
func (c *Classifier) Classify(ctx context.Context, req ports.ClassifyRequest) (domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Prediction{}, err
	}
	words := strings.Fields(normalize(req.Utterance))

	labels := make([]string, 0, len(req.Candidates))
	for label := range req.Candidates {
		if label != domain.UnsureIntent {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	best := domain.Prediction{Label: domain.UnsureIntent}
	bestScore := -1.0
	for _, label := range labels {
		cands := req.Candidates[label]
		for i, cand := range cands {
			score := c.score(words, phrases(label, cand))
			if score < c.threshold || score <= bestScore {
				continue
			}
			bestScore = score
			best = domain.Prediction{Label: label}
			if len(cands) > 1 {
				best.Index = i
				best.Indexed = true
			}
		}
	}
	return best, nil
}

// Score returns the best similarity between the utterance and any phrase.
func (c *Classifier) Score(utterance string, phrase string) float64 {
	return c.score(strings.Fields(normalize(utterance)), []string{phrase})
}

func (c *Classifier) score(words []string, phrases []string) float64 {
	best := 0.0
	for _, p := range phrases {
		pw := strings.Fields(normalize(p))
		if len(pw) == 0 || len(words) == 0 {
			continue
		}
		if containsRun(words, pw) {
			return 1
		}
		size := len(pw)
		if size > len(words) {
			size = len(words)
		}
		target := strings.Join(pw, " ")
		for i := 0; i+size <= len(words); i++ {
			window := strings.Join(words[i:i+size], " ")
			if s := levenshtein.Similarity(window, target, c.params); s > best {
				best = s
			}
		}
	}
	return best
}

func phrases(label string, cand domain.IntentCandidate) []string {
	out := []string{label}
	if cand.Attribute.Definition != "" {
		out = append(out, cand.Attribute.Definition)
	}
	return append(out, cand.Attribute.SampleUtterances...)
}

func containsRun(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j := range run {
			if words[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r > 127:
			return r
		default:
			return ' '
		}
	}, s)
}
