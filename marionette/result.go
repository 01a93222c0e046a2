package marionette

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoField indicates a ResultSet has no value with the requested name.
	ErrNoField = errors.New("marionette: result field not found")
	// ErrFieldType indicates a ResultSet value has a different type than requested.
	ErrFieldType = errors.New("marionette: result field has unexpected type")
)

// ResultSet maps result names to their decoded values.
//
// Values are one of bool, string, []string, []float64 or []int64. Arrays
// are fully materialized when the response is decoded.
type ResultSet map[string]any

// Has reports whether name is present.
func (rs ResultSet) Has(name string) bool {
	_, ok := rs[name]
	return ok
}

// Keys returns the field names in sorted order.
func (rs ResultSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Bool returns the boolean named name.
func (rs ResultSet) Bool(name string) (bool, error) {
	return field[bool](rs, name)
}

// Text returns the string named name.
func (rs ResultSet) Text(name string) (string, error) {
	return field[string](rs, name)
}

// Strings returns the string array named name.
func (rs ResultSet) Strings(name string) ([]string, error) {
	return field[[]string](rs, name)
}

// Floats returns the float array named name.
func (rs ResultSet) Floats(name string) ([]float64, error) {
	return field[[]float64](rs, name)
}

// Ints returns the integer array named name.
func (rs ResultSet) Ints(name string) ([]int64, error) {
	return field[[]int64](rs, name)
}

// Int returns the first element of the integer array named name.
func (rs ResultSet) Int(name string) (int64, error) {
	v, err := rs.Ints(name)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrNoField, name)
	}

	return v[0], nil
}

// Float returns the first element of the float array named name.
func (rs ResultSet) Float(name string) (float64, error) {
	v, err := rs.Floats(name)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrNoField, name)
	}

	return v[0], nil
}

func field[T any](rs ResultSet, name string) (T, error) {
	var zero T

	v, ok := rs[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoField, name)
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrFieldType, name, v, zero)
	}

	return t, nil
}
