package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

const classificationSchema = `{
	"type": "object",
	"required": ["label", "confidence"],
	"properties": {
		"label": {"type": "string", "enum": ["question", "parameter", "generation", "analysis", "unclassifiable"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["label", "text"],
				"properties": {
					"label": {"type": "string", "enum": ["question", "parameter", "generation", "analysis"]},
					"text": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

const classifierSystemPrompt = `Classify the user's request for a PV-curve analysis agent.
Reply with JSON only: {"label": one of question|parameter|generation|analysis|unclassifiable,
"confidence": 0..1, "steps": optional array of {"label","text"} when the request contains
several actions in sequence}. "parameter" means changing simulation inputs, "generation"
means producing a new curve, "analysis" means interpreting existing results.`

// ProviderClassifier asks the text backend for a classification and validates
// the reply against a JSON schema. Anything the schema rejects falls through
// to the deterministic rules classifier instead of failing the turn.
type ProviderClassifier struct {
	provider ports.Provider
	fallback ports.Classifier
}

func NewProviderClassifier(provider ports.Provider, fallback ports.Classifier) *ProviderClassifier {
	if fallback == nil {
		fallback = NewRulesClassifier()
	}
	return &ProviderClassifier{provider: provider, fallback: fallback}
}

func (c *ProviderClassifier) Classify(ctx context.Context, text string, recent []ports.Turn) (ports.Classification, error) {
	in := ports.PromptInput{System: classifierSystemPrompt, Query: text}
	for _, t := range recent {
		in.Context = append(in.Context, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}

	raw, err := c.provider.Complete(ctx, in)
	if err != nil {
		return c.fallback.Classify(ctx, text, recent)
	}

	cls, err := parseClassification(raw)
	if err != nil {
		return c.fallback.Classify(ctx, text, recent)
	}
	return cls, nil
}

func parseClassification(raw string) (ports.Classification, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return ports.Classification{}, fmt.Errorf("no JSON object in classifier output")
	}
	if err := validateAgainst(classificationSchema, payload); err != nil {
		return ports.Classification{}, err
	}
	var cls ports.Classification
	if err := json.Unmarshal([]byte(payload), &cls); err != nil {
		return ports.Classification{}, fmt.Errorf("failed to decode classification: %w", err)
	}
	return cls, nil
}

// validateAgainst checks a JSON document against a schema, flattening the
// violation list into one error.
func validateAgainst(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(errs, "; "))
	}
	return nil
}

// extractJSONObject pulls the outermost {...} from model output that may wrap
// the JSON in prose or fencing.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

var _ ports.Classifier = (*ProviderClassifier)(nil)
