package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoStartNode is returned when a turn cannot resolve any current node
// because the graph declares no start node.
var ErrNoStartNode = errors.New("graph has no start node")

// ErrInvalidGraph wraps every structural error found while loading a graph.
var ErrInvalidGraph = errors.New("invalid graph definition")

// ErrNoCandidates is returned by weighted selection over an empty set.
var ErrNoCandidates = errors.New("no candidates to choose from")

// ErrClassifier wraps failures of the intent classifier collaborator.
var ErrClassifier = errors.New("intent classifier failed")

// GraphError describes a structural problem in a graph definition.
type GraphError struct {
	Kind string // e.g. "dangling_edge", "duplicate_node"
	Ref  string
	Msg  string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Ref, e.Msg)
}

// Unwrap lets errors.Is match ErrInvalidGraph.
func (e *GraphError) Unwrap() error {
	return ErrInvalidGraph
}
