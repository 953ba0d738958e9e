package domain

import "strings"

// EdgeAttribute holds the typed payload carried by an edge.
type EdgeAttribute struct {
	// Weight drives weighted random selection among same-class candidates.
	// Non-positive weights are normalized to 1 at load time.
	Weight float64 `json:"weight" yaml:"weight" mapstructure:"weight"`

	// Pred marks the edge intent as globally reachable from any node.
	Pred bool `json:"pred" yaml:"pred" mapstructure:"pred"`

	Definition       string   `json:"definition,omitempty" yaml:"definition,omitempty" mapstructure:"definition"`
	SampleUtterances []string `json:"sample_utterances,omitempty" yaml:"sample_utterances,omitempty" mapstructure:"sample_utterances"`
}

// Edge defines a labeled transition between two nodes.
type Edge struct {
	Source string `json:"source" yaml:"source" mapstructure:"source"`
	Target string `json:"target" yaml:"target" mapstructure:"target"`

	// Intent is the lowercased label. NoneIntent marks an unconditional
	// (random) transition.
	Intent string `json:"intent" yaml:"intent" mapstructure:"intent"`

	Attribute EdgeAttribute `json:"attribute" yaml:"attribute" mapstructure:"attribute"`
}

// IsRandom reports whether the edge is an unconditional transition.
func (e Edge) IsRandom() bool {
	return e.Intent == NoneIntent
}

// Candidate denormalizes the edge into an intent candidate.
func (e Edge) Candidate() IntentCandidate {
	attr := e.Attribute
	attr.SampleUtterances = append([]string(nil), e.Attribute.SampleUtterances...)
	return IntentCandidate{
		Intent:    e.Intent,
		Source:    e.Source,
		Target:    e.Target,
		Attribute: attr,
	}
}

// NormalizeIntent lowercases and trims an intent label.
func NormalizeIntent(intent string) string {
	return strings.ToLower(strings.TrimSpace(intent))
}

// IntentCandidate is an edge offered to the classifier under its intent label.
type IntentCandidate struct {
	Intent    string        `json:"intent"`
	Source    string        `json:"source_node,omitempty"`
	Target    string        `json:"target_node,omitempty"`
	Attribute EdgeAttribute `json:"attribute"`
}

// UnsureCandidate is the synthetic catch-all candidate.
func UnsureCandidate() IntentCandidate {
	return IntentCandidate{
		Intent:    UnsureIntent,
		Attribute: EdgeAttribute{Weight: 1},
	}
}

// IntentPool maps intent labels to their candidate edges.
type IntentPool map[string][]IntentCandidate

// Clone returns a deep copy of the pool.
func (p IntentPool) Clone() IntentPool {
	if p == nil {
		return nil
	}
	out := make(IntentPool, len(p))
	for intent, cands := range p {
		copied := make([]IntentCandidate, len(cands))
		for i, c := range cands {
			copied[i] = c
			copied[i].Attribute.SampleUtterances = append([]string(nil), c.Attribute.SampleUtterances...)
		}
		out[intent] = copied
	}
	return out
}

// Without returns a copy of the pool excluding the given labels.
func (p IntentPool) Without(excluded map[string]bool) IntentPool {
	out := make(IntentPool, len(p))
	for intent, cands := range p.Clone() {
		if excluded[intent] {
			continue
		}
		out[intent] = cands
	}
	return out
}

// Consume removes the candidates of intent that target node. The label is
// dropped entirely once its last candidate is gone.
func (p IntentPool) Consume(intent, node string) bool {
	cands, ok := p[intent]
	if !ok {
		return false
	}
	kept := cands[:0]
	removed := false
	for _, c := range cands {
		if c.Target == node {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		delete(p, intent)
	} else {
		p[intent] = kept
	}
	return removed
}
