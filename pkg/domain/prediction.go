package domain

import (
	"strconv"
	"strings"
)

// Prediction is the classifier's answer.
type Prediction struct {
	Label string `json:"label"`

	// Index disambiguates between candidates sharing Label. It is only
	// meaningful when Indexed is true.
	Index   int  `json:"index,omitempty"`
	Indexed bool `json:"indexed,omitempty"`
}

// ParsePrediction reads the textual "label__<N>" form some classifiers
// emit when several candidates share a label.
func ParsePrediction(raw string) Prediction {
	label, rest, found := strings.Cut(raw, "__<")
	if !found {
		return Prediction{Label: strings.TrimSpace(raw)}
	}
	digits, _, _ := strings.Cut(rest, ">")
	idx, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil || idx < 0 {
		return Prediction{Label: strings.TrimSpace(label)}
	}
	return Prediction{Label: strings.TrimSpace(label), Index: idx, Indexed: true}
}

// String renders the prediction in its textual form.
func (p Prediction) String() string {
	if !p.Indexed {
		return p.Label
	}
	return p.Label + "__<" + strconv.Itoa(p.Index) + ">"
}
