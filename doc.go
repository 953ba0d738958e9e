/*
Package wayfinder is a dialog-flow decision engine for task-oriented conversational agents.

A task graph describes the conversation: nodes name the resource (worker or
tool) that should run, and edges carry intent labels. On every user turn the
engine classifies the utterance against the intents reachable from the
current node, and against globally reachable intents when allowed. It then
returns the node the execution layer should run next. The engine does not
execute nodes itself.

# Concept

All session data lives in domain.State, which the engine never mutates in
place: Decide takes a state and returns the updated copy. One Engine serves
every session of a graph, and any ports.StateStore can persist the states.

  - Local intents follow the outgoing edges of the current node.
  - Global intents jump anywhere; interrupted flows are pushed onto a flow
    stack and resumed once the detour reaches a leaf.
  - Unconditional ("none") edges advance by weighted draw.
  - Nested graphs: component nodes open a sub-graph and are resumed when it ends.
  - Turns that match nothing are routed to the fallback ("planner") resource.

# Usage

	loader := file.NewLoader("taskgraph.json")
	eng, err := wayfinder.New(ctx, loader, wayfinder.WithClassifier(classifier))
	if err != nil {
		log.Fatal(err)
	}

	state := eng.NewState("session-123")
	decision, state, err := eng.Decide(ctx, state, domain.Turn{
		Utterance:               "I'd like to book a table",
		AllowGlobalIntentSwitch: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	// Run decision.ResourceName with decision.Attributes, then report its
	// status through state.SetStatus before the next turn.
*/
package wayfinder
