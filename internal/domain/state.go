// Package domain contains pure, dependency-free domain models and types
// for the outreach drafting pipeline.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"time"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string identifier of the key.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used by the pipeline units.
var (
	// KeyProspect stores the free-text prospect description for the run.
	KeyProspect = Key[string]{"prospect"}

	// KeySubject stores the subject line drafts are scored against.
	KeySubject = Key[string]{"subject"}

	// KeyDrafts stores one Draft per persona, ordered by agent index.
	KeyDrafts = Key[[]Draft]{"drafts"}

	// KeyScoredDrafts stores the hybrid-scored drafts in agent index order.
	KeyScoredDrafts = Key[[]ScoredDraft]{"scored_drafts"}

	// KeyCosts stores the ledger snapshot taken after generation.
	KeyCosts = Key[CostSummary]{"costs"}

	// KeyRunResult stores the final report produced by selection.
	KeyRunResult = Key[*RunResult]{"run_result"}

	// KeyRunID stores the unique identifier of the current run.
	KeyRunID = Key[string]{"execution.run_id"}
)

// deepCopyValue creates a deep copy of a value so callers cannot mutate
// data held by a State through slices, maps or pointers they received.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	// time.Time is immutable and can be returned directly.
	if val, ok := value.(time.Time); ok {
		return val
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			newSlice.Index(i).Set(copyInto(v.Index(i)))
		}
		return newSlice.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		newMap := reflect.MakeMap(v.Type())
		for _, key := range v.MapKeys() {
			newMap.SetMapIndex(copyInto(key), copyInto(v.MapIndex(key)))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return value
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(copyInto(v.Elem()))
		return newPtr.Interface()

	case reflect.Struct:
		// Unexported fields are left at their zero value; every domain type
		// stored in State exposes its data through exported fields.
		newStruct := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if newStruct.Field(i).CanSet() {
				newStruct.Field(i).Set(copyInto(v.Field(i)))
			}
		}
		return newStruct.Interface()

	default:
		return value
	}
}

// copyInto deep copies v and converts the result back to v's static type.
// Interface values (errors in particular) are shared, not copied.
func copyInto(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.Kind() == reflect.Interface || !v.CanInterface() {
		return v
	}
	copied := deepCopyValue(v.Interface())
	if copied == nil {
		return reflect.Zero(v.Type())
	}
	return reflect.ValueOf(copied).Convert(v.Type())
}

// State represents an immutable collection of run data that flows through
// the pipeline. It uses copy-on-write semantics so that units can never
// observe each other's in-flight mutations.
type State struct {
	data map[string]any
}

// NewState creates a new empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get retrieves a value from the State with compile-time type safety.
// It returns the value and a boolean indicating whether the key exists
// and contains a value of the correct type. The returned value is a deep
// copy.
//
// Example:
//
//	drafts, ok := Get(state, KeyDrafts)
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	val, ok := deepCopyValue(value).(T)
	return val, ok
}

// With creates a new State with the specified key-value pair added or
// updated, leaving the original unchanged.
//
// Example:
//
//	next := With(state, KeyProspect, "CEO needing automation for marketing")
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// Has reports whether the key is present regardless of its value.
func Has[T any](s State, key Key[T]) bool {
	_, ok := s.data[key.name]
	return ok
}

// Keys returns all keys present in the State.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}
