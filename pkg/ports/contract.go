package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID)
		state.CurrNode = "menu"
		state.CurrGlobalIntent = "book"
		state.SetStatus("menu", domain.StatusStay)
		state.AvailableGlobalIntents = domain.IntentPool{
			"book":              {{Intent: "book", Source: "start", Target: "menu", Attribute: domain.EdgeAttribute{Weight: 2, Pred: true}}},
			domain.UnsureIntent: {domain.UnsureCandidate()},
		}
		state.PushFlow("start", "")
		jump := 0
		state.Path = []domain.PathNode{{NodeID: "start"}, {NodeID: "menu", GlobalIntent: "book", LeafJump: &jump}}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrNode, loaded.CurrNode)
		assert.Equal(t, state.CurrGlobalIntent, loaded.CurrGlobalIntent)
		assert.Equal(t, domain.StatusStay, loaded.NodeStatus["menu"])
		assert.Equal(t, state.AvailableGlobalIntents, loaded.AvailableGlobalIntents)
		assert.Equal(t, state.FlowStack, loaded.FlowStack)
		require.Len(t, loaded.Path, 2)
		require.NotNil(t, loaded.Path[1].LeafJump)
		assert.Equal(t, 0, *loaded.Path[1].LeafJump)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1))
		_ = store.Save(ctx, id2, domain.NewState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
