package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_FlowStack(t *testing.T) {
	s := domain.NewState("s1")

	_, ok := s.PopFlow()
	assert.False(t, ok, "empty stack should not pop")

	s.PushFlow("menu", "browse")
	s.PushFlow("checkout", "buy")

	b, ok := s.PopFlow()
	require.True(t, ok)
	assert.Equal(t, "checkout", b.NodeID)
	assert.Equal(t, "buy", b.GlobalIntent)
	assert.False(t, b.InFlowStack, "consumed breadcrumb is flipped")

	b, ok = s.PopFlow()
	require.True(t, ok)
	assert.Equal(t, "menu", b.NodeID)

	_, ok = s.PopFlow()
	assert.False(t, ok)
	assert.Empty(t, s.FlowStack)
}

func TestState_PopFlowSkipsStaleEntries(t *testing.T) {
	s := domain.NewState("s1")
	s.FlowStack = []domain.Breadcrumb{
		{NodeID: "a", InFlowStack: true},
		{NodeID: "b", InFlowStack: false},
		{NodeID: "c", InFlowStack: false},
	}

	b, ok := s.PopFlow()
	require.True(t, ok)
	assert.Equal(t, "a", b.NodeID)
	assert.Empty(t, s.FlowStack, "stale entries above the consumed one are compacted")
}

func TestState_MarkNoIntent(t *testing.T) {
	s := domain.NewState("s1")
	s.MarkNoIntent()
	require.Len(t, s.NLURecords, 1)
	assert.True(t, s.NLURecords[0].NoIntent)
	assert.False(t, s.NLURecords[0].GlobalIntent)

	s.Record(domain.NLURecord{PredIntent: "book", GlobalIntent: true})
	s.MarkNoIntent()
	require.Len(t, s.NLURecords, 2)
	assert.True(t, s.NLURecords[1].NoIntent)
}

func TestState_CloneIsDeep(t *testing.T) {
	jump := 0
	s := domain.NewState("s1")
	s.SetStatus("a", domain.StatusStay)
	s.NodeLimit["a"] = 2
	s.AvailableGlobalIntents = domain.IntentPool{
		"book": {{Intent: "book", Target: "t1", Attribute: domain.EdgeAttribute{Weight: 1, SampleUtterances: []string{"book it"}}}},
	}
	s.PushFlow("a", "")
	s.Path = []domain.PathNode{{NodeID: "a", LeafJump: &jump}}
	s.Record(domain.NLURecord{CandidateIntents: []string{"book"}})

	c := s.Clone()
	c.SetStatus("a", domain.StatusComplete)
	c.NodeLimit["a"] = 0
	c.AvailableGlobalIntents.Consume("book", "t1")
	c.FlowStack[0].NodeID = "changed"
	*c.Path[0].LeafJump = 5
	c.NLURecords[0].CandidateIntents[0] = "changed"

	assert.Equal(t, domain.StatusStay, s.NodeStatus["a"])
	assert.Equal(t, 2, s.NodeLimit["a"])
	assert.Contains(t, s.AvailableGlobalIntents, "book")
	assert.Equal(t, "a", s.FlowStack[0].NodeID)
	assert.Equal(t, 0, *s.Path[0].LeafJump)
	assert.Equal(t, "book", s.NLURecords[0].CandidateIntents[0])
}

func TestState_JSONRoundTripKeepsPool(t *testing.T) {
	s := domain.NewState("s1")
	s.CurrNode = "menu"
	s.AvailableGlobalIntents = domain.IntentPool{
		domain.UnsureIntent: {domain.UnsureCandidate()},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var loaded domain.State
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "menu", loaded.CurrNode)
	assert.Contains(t, loaded.AvailableGlobalIntents, domain.UnsureIntent)
}

func TestIntentPool_Consume(t *testing.T) {
	pool := domain.IntentPool{
		"book": {
			{Intent: "book", Target: "t1"},
			{Intent: "book", Target: "t2"},
		},
	}

	assert.True(t, pool.Consume("book", "t1"))
	assert.Len(t, pool["book"], 1)
	assert.False(t, pool.Consume("book", "t1"), "already consumed")

	assert.True(t, pool.Consume("book", "t2"))
	assert.NotContains(t, pool, "book", "exhausted label is dropped")

	assert.False(t, pool.Consume("missing", "t1"))
}

func TestIntentPool_Without(t *testing.T) {
	pool := domain.IntentPool{
		"a":    {{Intent: "a"}},
		"b":    {{Intent: "b"}},
		"none": {{Intent: "none"}},
	}
	got := pool.Without(map[string]bool{"a": true, "none": true})
	assert.Len(t, got, 1)
	assert.Contains(t, got, "b")
	assert.Len(t, pool, 3, "source pool untouched")
}

func TestDecisionFor_DefaultsTags(t *testing.T) {
	node := domain.Node{
		ID:       "n1",
		Resource: domain.Resource{ID: "r1", Name: "MessageWorker"},
	}
	d := domain.DecisionFor(node, true, true)
	assert.Equal(t, "n1", d.NodeID)
	assert.Equal(t, "MessageWorker", d.ResourceName)
	assert.Equal(t, map[string]any{}, d.AdditionalArgs[domain.TagsArg])
	assert.False(t, d.IsFallback())
}

func TestDecisionFor_DoesNotShareNodeAttributes(t *testing.T) {
	limit := 2
	node := domain.Node{
		ID:        "n1",
		Resource:  domain.Resource{ID: "r1", Name: "MessageWorker"},
		Attribute: domain.NodeAttribute{Tags: map[string]any{"lang": "en"}, Limit: &limit},
	}
	d := domain.DecisionFor(node, false, true)

	d.Attributes.Tags["lang"] = "pt"
	*d.Attributes.Limit = 9
	d.AdditionalArgs[domain.TagsArg].(map[string]any)["extra"] = true

	assert.Equal(t, map[string]any{"lang": "en"}, node.Attribute.Tags)
	assert.Equal(t, 2, *node.Attribute.Limit)
}
