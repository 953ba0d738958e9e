package ports

import (
	"context"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// GraphLoader defines how the engine retrieves the task graph definition.
// This allows the storage layer (file, Memory) to be decoupled.
type GraphLoader interface {
	// Load returns the raw task graph definition. Validation happens in the engine.
	Load(ctx context.Context) (*domain.Definition, error)
}
