package tests

import (
	"context"
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// GraphLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.GraphLoader.
// want is the definition the loader is expected to return.
func GraphLoaderContractTest(t *testing.T, loader ports.GraphLoader, want *domain.Definition) {
	t.Helper()

	t.Run("Load_Success", func(t *testing.T) {
		got, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error loading graph: %v", err)
		}
		if got == nil {
			t.Fatal("expected definition, got nil")
		}

		if len(got.Nodes) != len(want.Nodes) {
			t.Errorf("expected %d nodes, got %d", len(want.Nodes), len(got.Nodes))
		}
		if len(got.Edges) != len(want.Edges) {
			t.Errorf("expected %d edges, got %d", len(want.Edges), len(got.Edges))
		}

		lookup := make(map[string]bool)
		for _, n := range got.Nodes {
			lookup[n.ID] = true
		}
		for _, n := range want.Nodes {
			if !lookup[n.ID] {
				t.Errorf("node %s missing from definition", n.ID)
			}
		}
	})

	t.Run("Load_Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := loader.Load(ctx); err == nil {
			t.Error("expected error for canceled context, got nil")
		}
	})
}
