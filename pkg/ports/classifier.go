package ports

import (
	"context"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// ClassifyRequest is the input handed to an IntentClassifier.
type ClassifyRequest struct {
	Utterance string
	History   string

	// Candidates always contains the unsure label.
	Candidates domain.IntentPool

	Model domain.ModelConfig
}

// IntentClassifier picks one label among the offered candidates.
//
// Implementations should return a label that is a key of Candidates. The
// engine tolerates small spelling drift via fuzzy matching and treats any
// error as "no intent matched".
type IntentClassifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (domain.Prediction, error)
}

// ClassifierFunc adapts a plain function to IntentClassifier.
type ClassifierFunc func(ctx context.Context, req ClassifyRequest) (domain.Prediction, error)

func (f ClassifierFunc) Classify(ctx context.Context, req ClassifyRequest) (domain.Prediction, error) {
	return f(ctx, req)
}
