package runtime

import (
	"sort"

	"github.com/agext/levenshtein"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// matchLabel normalizes a predicted label to one of the candidate labels.
// Exact matches win; otherwise the most similar label is accepted when its
// similarity is above domain.SimilarityThreshold.
func matchLabel(predicted string, candidates domain.IntentPool) (string, bool) {
	if predicted == "" {
		return "", false
	}
	if _, ok := candidates[predicted]; ok {
		return predicted, true
	}

	best, bestScore := "", 0.0
	for _, label := range sortedLabels(candidates) {
		if score := levenshtein.Similarity(predicted, label, nil); score > bestScore {
			best, bestScore = label, score
		}
	}
	if bestScore > domain.SimilarityThreshold {
		return best, true
	}
	return "", false
}

func sortedLabels(pool domain.IntentPool) []string {
	labels := make([]string, 0, len(pool))
	for label := range pool {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
