// Package adapters provides concrete implementations of the dialogue ports:
// deterministic rules-based classification and extraction for offline use,
// provider-backed variants with schema-validated JSON output, the libsql
// session store, the LRU classification cache, and the zerolog tracer.
package adapters

import (
	"context"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// RulesClassifier labels turns with deterministic keyword rules. It is the
// offline default and the fallback behind the provider-backed classifier,
// and it splits simple compound requests ("set X and run") into planned
// steps.
type RulesClassifier struct{}

func NewRulesClassifier() *RulesClassifier {
	return &RulesClassifier{}
}

func (c *RulesClassifier) Classify(_ context.Context, text string, _ []ports.Turn) (ports.Classification, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ports.Classification{Label: ports.LabelUnclassifiable, Confidence: 1}, nil
	}

	// Compound: a mutation clause followed by a generation clause.
	for _, sep := range []string{" and then ", ", then ", " then ", " and "} {
		if i := strings.Index(lower, sep); i > 0 {
			left, right := lower[:i], lower[i+len(sep):]
			if looksParameter(left) && looksGeneration(right) {
				return ports.Classification{
					Label:      ports.LabelParameter,
					Confidence: 0.9,
					Steps: []ports.PlannedStep{
						{Label: ports.LabelParameter, Text: strings.TrimSpace(text[:i])},
						{Label: ports.LabelGeneration, Text: strings.TrimSpace(text[i+len(sep):])},
					},
				}, nil
			}
		}
	}

	switch {
	case looksGeneration(lower):
		return ports.Classification{Label: ports.LabelGeneration, Confidence: 0.9}, nil
	case looksParameter(lower):
		return ports.Classification{Label: ports.LabelParameter, Confidence: 0.9}, nil
	case looksAnalysis(lower):
		return ports.Classification{Label: ports.LabelAnalysis, Confidence: 0.85}, nil
	}
	// Questions are the safe default for anything else.
	return ports.Classification{Label: ports.LabelQuestion, Confidence: 0.7}, nil
}

func looksParameter(s string) bool {
	for _, kw := range []string{"set ", "set the", "change ", "update ", "increase ", "decrease ", "switch ", "reset", "use bus", "make the"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func looksGeneration(s string) bool {
	for _, kw := range []string{"generate", "run the sim", "run a sim", "run it", "run the curve", "plot", "draw", "sweep", "create the curve", "create a curve", "build the curve"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	// A bare "run" counts when nothing marks the text as a question.
	return s == "run" || strings.HasPrefix(s, "run ") && !strings.Contains(s, "?")
}

func looksAnalysis(s string) bool {
	for _, kw := range []string{"analyze", "analyse", "analysis", "compare", "interpret", "what changed", "how does the latest", "last run", "previous run"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var _ ports.Classifier = (*RulesClassifier)(nil)
