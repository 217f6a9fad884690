// Package params implements the versioned simulation parameter store.
//
// The parameter set is a closed, known universe: every name has a declared
// kind and valid domain, and mutations are validated before anything is
// committed. Batch application is all-or-nothing.
package params

import (
	"fmt"
	"math"
	"sort"
)

// Canonical parameter names.
const (
	Grid         = "grid"
	MonitoredBus = "monitored_bus"
	BasePower    = "base_power"
	StepSize     = "step_size"
	MaxScale     = "max_scale"
	PowerFactor  = "power_factor"
	VoltageLimit = "voltage_limit"
	LoadType     = "load_type"
	Continuation = "continuation"
)

// Load type enum values.
const (
	LoadInductive  = "inductive"
	LoadCapacitive = "capacitive"
)

// SupportedGrids lists the selectable test systems, smallest first.
var SupportedGrids = []string{"ieee14", "ieee24", "ieee30", "ieee39", "ieee57", "ieee118", "ieee300"}

// Set is one immutable snapshot of all simulation inputs. Copies are cheap;
// the store hands out values, never shared pointers.
type Set struct {
	Grid         string  `json:"grid"`
	MonitoredBus int     `json:"monitored_bus"`
	BasePower    float64 `json:"base_power"` // system base, MVA
	StepSize     float64 `json:"step_size"`  // load increment per sweep step
	MaxScale     float64 `json:"max_scale"`  // load multiplier ceiling
	PowerFactor  float64 `json:"power_factor"`
	VoltageLimit float64 `json:"voltage_limit"` // pu floor before the sweep stops
	LoadType     string  `json:"load_type"`
	Continuation bool    `json:"continuation"`
}

// Default is the canonical reset target. Values follow the reference
// configuration of the ieee39 study case.
var Default = Set{
	Grid:         "ieee39",
	MonitoredBus: 5,
	BasePower:    100.0,
	StepSize:     0.01,
	MaxScale:     3.0,
	PowerFactor:  0.95,
	VoltageLimit: 0.4,
	LoadType:     LoadInductive,
	Continuation: true,
}

// Capacitive reports whether the configured load type leads the voltage.
func (s Set) Capacitive() bool { return s.LoadType == LoadCapacitive }

// Value returns the named parameter as a display-friendly value.
func (s Set) Value(name string) (any, error) {
	switch name {
	case Grid:
		return s.Grid, nil
	case MonitoredBus:
		return s.MonitoredBus, nil
	case BasePower:
		return s.BasePower, nil
	case StepSize:
		return s.StepSize, nil
	case MaxScale:
		return s.MaxScale, nil
	case PowerFactor:
		return s.PowerFactor, nil
	case VoltageLimit:
		return s.VoltageLimit, nil
	case LoadType:
		return s.LoadType, nil
	case Continuation:
		return s.Continuation, nil
	}
	return nil, &UnknownParameterError{Name: name}
}

// Names returns the canonical parameter names in stable order.
func Names() []string {
	names := []string{Grid, MonitoredBus, BasePower, StepSize, MaxScale, PowerFactor, VoltageLimit, LoadType, Continuation}
	sort.Strings(names)
	return names
}

// Store owns the current parameter snapshot. It has no side effects beyond
// its own state: no logging, no text output.
type Store struct {
	current Set
	version uint64 // bumped on every committed mutation
}

// NewStore creates a store holding the default snapshot.
func NewStore() *Store {
	return &Store{current: Default}
}

// NewStoreWith creates a store seeded from an existing snapshot, used when
// rehydrating a session State.
func NewStoreWith(s Set) *Store {
	return &Store{current: s}
}

// GetAll returns a read-only snapshot of the current parameter set.
func (st *Store) GetAll() Set { return st.current }

// Version returns the mutation counter for the store.
func (st *Store) Version() uint64 { return st.version }

// Validate checks a single candidate value against the parameter's declared
// domain and returns the normalized value on success. Unknown names fail with
// UnknownParameterError, domain violations with InvalidParameterError.
func (st *Store) Validate(name string, value any) (any, error) {
	switch name {
	case Grid:
		s, err := coerceString(name, value)
		if err != nil {
			return nil, err
		}
		for _, g := range SupportedGrids {
			if s == g {
				return s, nil
			}
		}
		return nil, &InvalidParameterError{Name: name, Value: value, Reason: fmt.Sprintf("must be one of %v", SupportedGrids)}
	case MonitoredBus:
		n, err := coerceInt(name, value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be >= 0"}
		}
		return n, nil
	case BasePower:
		f, err := coerceFloat(name, value)
		if err != nil {
			return nil, err
		}
		if f <= 0 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be > 0 MVA"}
		}
		return f, nil
	case StepSize:
		f, err := coerceFloat(name, value)
		if err != nil {
			return nil, err
		}
		if f <= 0 || f > 0.5 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be in (0, 0.5]"}
		}
		return f, nil
	case MaxScale:
		f, err := coerceFloat(name, value)
		if err != nil {
			return nil, err
		}
		if f < 1 || f > 10 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be in [1, 10]"}
		}
		return f, nil
	case PowerFactor:
		f, err := coerceFloat(name, value)
		if err != nil {
			return nil, err
		}
		if f <= 0 || f > 1 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be in (0, 1]"}
		}
		return f, nil
	case VoltageLimit:
		f, err := coerceFloat(name, value)
		if err != nil {
			return nil, err
		}
		if f < 0 || f >= 1 {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be in [0, 1) pu"}
		}
		return f, nil
	case LoadType:
		s, err := coerceString(name, value)
		if err != nil {
			return nil, err
		}
		if s != LoadInductive && s != LoadCapacitive {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be inductive or capacitive"}
		}
		return s, nil
	case Continuation:
		b, err := coerceBool(name, value)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, &UnknownParameterError{Name: name}
}

// Apply commits a batch of deltas atomically. If any delta fails validation
// the whole batch is rejected and the store is left untouched; the returned
// error names the failing parameter and reason.
func (st *Store) Apply(deltas map[string]any) (Set, error) {
	next := st.current
	// Validate the whole batch against a scratch copy before committing.
	for _, name := range sortedKeys(deltas) {
		normalized, err := st.Validate(name, deltas[name])
		if err != nil {
			return st.current, err
		}
		switch name {
		case Grid:
			next.Grid = normalized.(string)
		case MonitoredBus:
			next.MonitoredBus = normalized.(int)
		case BasePower:
			next.BasePower = normalized.(float64)
		case StepSize:
			next.StepSize = normalized.(float64)
		case MaxScale:
			next.MaxScale = normalized.(float64)
		case PowerFactor:
			next.PowerFactor = normalized.(float64)
		case VoltageLimit:
			next.VoltageLimit = normalized.(float64)
		case LoadType:
			next.LoadType = normalized.(string)
		case Continuation:
			next.Continuation = normalized.(bool)
		}
	}
	st.current = next
	st.version++
	return st.current, nil
}

// ResetToDefault restores the canonical default snapshot. Always succeeds.
func (st *Store) ResetToDefault() Set {
	st.current = Default
	st.version++
	return st.current
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func coerceFloat(name string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, &InvalidParameterError{Name: name, Value: v, Reason: "must be a finite number"}
		}
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, &InvalidParameterError{Name: name, Value: v, Reason: fmt.Sprintf("expected number, got %T", v)}
}

func coerceInt(name string, v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, &InvalidParameterError{Name: name, Value: v, Reason: "expected integer"}
		}
		return int(x), nil
	}
	return 0, &InvalidParameterError{Name: name, Value: v, Reason: fmt.Sprintf("expected integer, got %T", v)}
}

func coerceString(name string, v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &InvalidParameterError{Name: name, Value: v, Reason: fmt.Sprintf("expected string, got %T", v)}
}

func coerceBool(name string, v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, &InvalidParameterError{Name: name, Value: v, Reason: fmt.Sprintf("expected bool, got %T", v)}
}
