package domain

import "sort"

// StateDiff represents the changes a turn made to a session.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrNode         *string `json:"curr_node,omitempty"`
	CurrGlobalIntent *string `json:"curr_global_intent,omitempty"`

	// NodeStatus contains only changed, added or deleted keys.
	// Deletions carry an empty status.
	NodeStatus map[string]Status `json:"node_status,omitempty"`

	// ExhaustedIntents lists global intents that left the available pool.
	ExhaustedIntents []string `json:"exhausted_intents,omitempty"`

	// FlowStackDepth is set when the flow stack grew or shrank.
	FlowStackDepth *int `json:"flow_stack_depth,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrNode != newState.CurrNode {
		diff.CurrNode = &newState.CurrNode
	}
	if oldState == nil || oldState.CurrGlobalIntent != newState.CurrGlobalIntent {
		diff.CurrGlobalIntent = &newState.CurrGlobalIntent
	}
	if oldState == nil || len(oldState.FlowStack) != len(newState.FlowStack) {
		depth := len(newState.FlowStack)
		diff.FlowStackDepth = &depth
	}

	diff.NodeStatus = diffStatus(oldState, newState)
	diff.ExhaustedIntents = diffIntents(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffStatus(old *State, new *State) map[string]Status {
	delta := make(map[string]Status)

	if old == nil {
		for k, v := range new.NodeStatus {
			delta[k] = v
		}
	} else {
		for k, v := range new.NodeStatus {
			if prev, ok := old.NodeStatus[k]; !ok || prev != v {
				delta[k] = v
			}
		}
		for k := range old.NodeStatus {
			if _, ok := new.NodeStatus[k]; !ok {
				delta[k] = ""
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffIntents reports labels dropped from a seeded pool. An unseeded old
// pool has nothing to lose.
func diffIntents(old *State, new *State) []string {
	if old == nil || len(old.AvailableGlobalIntents) == 0 {
		return nil
	}
	var gone []string
	for intent := range old.AvailableGlobalIntents {
		if _, ok := new.AvailableGlobalIntents[intent]; !ok {
			gone = append(gone, intent)
		}
	}
	sort.Strings(gone)
	return gone
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrNode == nil &&
		d.CurrGlobalIntent == nil &&
		d.FlowStackDepth == nil &&
		len(d.NodeStatus) == 0 &&
		len(d.ExhaustedIntents) == 0
}
