package ports

import "context"

// Label is the closed set of turn kinds the engine routes on. Anything a
// classifier emits outside this set is treated as LabelUnclassifiable.
type Label string

const (
	LabelQuestion       Label = "question"
	LabelParameter      Label = "parameter"
	LabelGeneration     Label = "generation"
	LabelAnalysis       Label = "analysis"
	LabelUnclassifiable Label = "unclassifiable"
)

// Known reports whether l is a routable label.
func (l Label) Known() bool {
	switch l {
	case LabelQuestion, LabelParameter, LabelGeneration, LabelAnalysis:
		return true
	}
	return false
}

// PlannedStep is one step of a compound request ("set step size to 0.05 and
// run the simulation"), already split by the classifier.
type PlannedStep struct {
	Label Label  `json:"label"`
	Text  string `json:"text"`
}

// Classification is the classifier's verdict for one raw input.
type Classification struct {
	Label      Label         `json:"label"`
	Confidence float64       `json:"confidence"`      // [0,1]; engine falls back to question below its threshold
	Steps      []PlannedStep `json:"steps,omitempty"` // non-empty for compound requests
}

// Classifier is the external turn classifier. Context holds only the bounded
// recent exchanges, never the full history.
type Classifier interface {
	Classify(ctx context.Context, text string, recent []Turn) (Classification, error)
}
