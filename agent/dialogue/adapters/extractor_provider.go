package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

const extractionSchema = `{
	"type": "object",
	"properties": {
		"grid": {"type": "string"},
		"monitored_bus": {"type": "integer", "minimum": 0},
		"base_power": {"type": "number"},
		"step_size": {"type": "number"},
		"max_scale": {"type": "number"},
		"power_factor": {"type": "number"},
		"voltage_limit": {"type": "number"},
		"load_type": {"type": "string", "enum": ["inductive", "capacitive"]},
		"continuation": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const extractorSystemPrompt = `Extract requested simulation parameter changes from the user's text.
Reply with JSON only: an object whose keys are canonical parameter names
(grid, monitored_bus, base_power, step_size, max_scale, power_factor,
voltage_limit, load_type, continuation) mapping to the requested values.
Include only parameters the user explicitly asked to change; reply {} when none.`

// ProviderExtractor asks the text backend to extract parameter deltas and
// validates the reply against the closed parameter schema. Invalid output
// falls through to the rules extractor.
type ProviderExtractor struct {
	provider ports.Provider
	fallback ports.Extractor
}

func NewProviderExtractor(provider ports.Provider, fallback ports.Extractor) *ProviderExtractor {
	if fallback == nil {
		fallback = NewRulesExtractor()
	}
	return &ProviderExtractor{provider: provider, fallback: fallback}
}

func (e *ProviderExtractor) Extract(ctx context.Context, text string) (map[string]any, error) {
	raw, err := e.provider.Complete(ctx, ports.PromptInput{System: extractorSystemPrompt, Query: text})
	if err != nil {
		return e.fallback.Extract(ctx, text)
	}

	deltas, err := parseDeltas(raw)
	if err != nil {
		return e.fallback.Extract(ctx, text)
	}
	return deltas, nil
}

func parseDeltas(raw string) (map[string]any, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in extractor output")
	}
	if err := validateAgainst(extractionSchema, payload); err != nil {
		return nil, err
	}
	var deltas map[string]any
	if err := json.Unmarshal([]byte(payload), &deltas); err != nil {
		return nil, fmt.Errorf("failed to decode deltas: %w", err)
	}
	// JSON numbers arrive as float64; the store's coercion handles integer
	// narrowing, but bus values written as "5.0" strings would not.
	if v, ok := deltas[params.Grid]; ok {
		if s, isStr := v.(string); isStr {
			deltas[params.Grid] = strings.ToLower(strings.TrimSpace(s))
		}
	}
	return deltas, nil
}

var _ ports.Extractor = (*ProviderExtractor)(nil)
