package domain

// Status is the per-node completion status reported by the execution layer.
type Status string

const (
	// StatusIncomplete means required data for the node is still missing.
	StatusIncomplete Status = "incomplete"
	// StatusStay means the node must be revisited before progressing.
	StatusStay Status = "stay"
	// StatusComplete is the terminal per-visit status.
	StatusComplete Status = "complete"
)

// Breadcrumb is a flow stack entry: an interrupted node to resume later.
type Breadcrumb struct {
	NodeID       string `json:"node_id"`
	GlobalIntent string `json:"global_intent"`
	InFlowStack  bool   `json:"in_flow_stack"`
}

// PathNode records one decided node in the session trail.
type PathNode struct {
	NodeID       string `json:"node_id"`
	GlobalIntent string `json:"global_intent,omitempty"`

	// NestedGraphStart is set when the node is a nested graph component,
	// holding the start node of its sub-graph.
	NestedGraphStart string `json:"nested_graph_start,omitempty"`

	// LeafJump points at the component entry whose sub-graph completed at
	// this node. Scans skip straight to it.
	LeafJump *int `json:"leaf_jump,omitempty"`
}

// NLURecord is one classification attempt in the per-turn audit trail.
type NLURecord struct {
	CandidateIntents []string `json:"candidate_intents"`
	PredIntent       string   `json:"pred_intent"`
	NoIntent         bool     `json:"no_intent"`
	GlobalIntent     bool     `json:"global_intent"`
}

// State is the per-conversation session state.
// It is owned by exactly one conversation and mutated only by the engine.
type State struct {
	SessionID string `json:"session_id"`

	// CurrNode is the active node. Empty means the start node.
	CurrNode string `json:"curr_node,omitempty"`

	// CurrGlobalIntent is the global intent currently in progress.
	CurrGlobalIntent string `json:"curr_global_intent,omitempty"`

	// Intent is the intent that produced the last decision.
	Intent string `json:"intent,omitempty"`

	NodeStatus map[string]Status `json:"node_status,omitempty"`

	// NodeLimit carries the remaining visit budget per node. Enforcement
	// belongs to the execution layer.
	NodeLimit map[string]int `json:"node_limit,omitempty"`

	// AvailableGlobalIntents is seeded from the graph's intent index the
	// first time it is read, then only shrinks.
	AvailableGlobalIntents IntentPool `json:"available_global_intents,omitempty"`

	FlowStack  []Breadcrumb `json:"flow_stack,omitempty"`
	Path       []PathNode   `json:"path,omitempty"`
	NLURecords []NLURecord  `json:"nlu_records,omitempty"`

	// Turns counts decisions taken in this session.
	Turns int `json:"turns"`

	// Sealed carries the encrypted form of the state when the store
	// encrypts at rest. All other fields except SessionID and Turns are
	// empty then.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates a clean session state.
func NewState(sessionID string) *State {
	return &State{
		SessionID:  sessionID,
		NodeStatus: make(map[string]Status),
		NodeLimit:  make(map[string]int),
	}
}

// StatusOf returns the recorded status of node, or def when unset.
func (s *State) StatusOf(node string, def Status) Status {
	if st, ok := s.NodeStatus[node]; ok {
		return st
	}
	return def
}

// SetStatus records the completion status of a node.
func (s *State) SetStatus(node string, status Status) {
	if s.NodeStatus == nil {
		s.NodeStatus = make(map[string]Status)
	}
	s.NodeStatus[node] = status
}

// PushFlow pushes an unfinished node onto the flow stack.
func (s *State) PushFlow(nodeID, globalIntent string) {
	s.FlowStack = append(s.FlowStack, Breadcrumb{
		NodeID:       nodeID,
		GlobalIntent: globalIntent,
		InFlowStack:  true,
	})
}

// PopFlow consumes the most recent unresolved breadcrumb. Consumed and
// stale entries above it are dropped from the stack.
func (s *State) PopFlow() (Breadcrumb, bool) {
	for i := len(s.FlowStack) - 1; i >= 0; i-- {
		b := s.FlowStack[i]
		if !b.InFlowStack {
			continue
		}
		s.FlowStack = s.FlowStack[:i]
		b.InFlowStack = false
		return b, true
	}
	s.FlowStack = s.FlowStack[:0]
	return Breadcrumb{}, false
}

// Record appends a classification attempt to the audit trail.
func (s *State) Record(r NLURecord) {
	s.NLURecords = append(s.NLURecords, r)
}

// MarkNoIntent flags the latest audit entry as "no intent", appending an
// empty entry when none exists.
func (s *State) MarkNoIntent() {
	if n := len(s.NLURecords); n > 0 {
		s.NLURecords[n-1].NoIntent = true
		return
	}
	s.NLURecords = append(s.NLURecords, NLURecord{
		CandidateIntents: []string{},
		NoIntent:         true,
	})
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s

	next.NodeStatus = make(map[string]Status, len(s.NodeStatus))
	for k, v := range s.NodeStatus {
		next.NodeStatus[k] = v
	}
	next.NodeLimit = make(map[string]int, len(s.NodeLimit))
	for k, v := range s.NodeLimit {
		next.NodeLimit[k] = v
	}
	next.AvailableGlobalIntents = s.AvailableGlobalIntents.Clone()
	next.FlowStack = append([]Breadcrumb(nil), s.FlowStack...)

	next.Path = make([]PathNode, len(s.Path))
	for i, p := range s.Path {
		next.Path[i] = p
		if p.LeafJump != nil {
			j := *p.LeafJump
			next.Path[i].LeafJump = &j
		}
	}
	if s.Path == nil {
		next.Path = nil
	}

	next.NLURecords = make([]NLURecord, len(s.NLURecords))
	for i, r := range s.NLURecords {
		next.NLURecords[i] = r
		next.NLURecords[i].CandidateIntents = append([]string(nil), r.CandidateIntents...)
	}
	if s.NLURecords == nil {
		next.NLURecords = nil
	}
	return &next
}
