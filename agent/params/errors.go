package params

import "fmt"

// UnknownParameterError reports a name outside the known parameter universe.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q (known: %v)", e.Name, Names())
}

// InvalidParameterError reports a value outside the parameter's declared
// domain. Reason is user-facing and names the violated bound.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value %v for parameter %q: %s", e.Value, e.Name, e.Reason)
}
