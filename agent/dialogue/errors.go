package dialogue

import (
	"errors"
	"fmt"
)

// ErrForeignState signals caller misuse: the prior State handed to Process
// was not produced by this engine (or was mutated outside it). This is the
// only condition Process surfaces as an error instead of a recovered turn.
var ErrForeignState = errors.New("prior state was not produced by this engine or was mutated outside it")

// ErrRecursionLimit trips when one raw input chains more follow-up
// dispatches than the configured ceiling allows. It is recovered at the
// engine boundary into a failed turn.
var ErrRecursionLimit = errors.New("chained dispatch ceiling exceeded")

// ClassificationFailure wraps a classifier error or an unusable verdict.
type ClassificationFailure struct {
	Reason string
	Err    error
}

func (e *ClassificationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Reason)
}

func (e *ClassificationFailure) Unwrap() error { return e.Err }

// GenerationFailure wraps a curve generation failure for the error taxonomy;
// the structured reason stays reachable through Unwrap.
type GenerationFailure struct {
	Err error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }
