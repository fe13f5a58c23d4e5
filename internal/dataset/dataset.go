// Package dataset holds the in-memory projection of a calibration log.
//
// A Dataset is a set of named, equally long series in file order. Each cell is
// a Value decided once at parse time: a number when the text parses as one,
// otherwise the text itself. Datasets are rebuilt on every analysis run and
// are never written back.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrValidation is returned for series that cannot be analysed.
var ErrValidation = errors.New("dataset validation failed")

// ValidationError describes why a series was rejected.
type ValidationError struct {
	Series string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Series == "" {
		return "dataset: " + e.Reason
	}
	return fmt.Sprintf("dataset: series %q: %s", e.Series, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Kind tags a Value.
type Kind int

const (
	Text Kind = iota
	Number
)

// Value is a single cell: either a number or text.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// TextValue returns a text Value.
func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

// Coerce stores s as a number when it parses as one, else as text.
func Coerce(s string) Value {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return NumberValue(f)
	}
	return TextValue(s)
}

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.Kind == Number }

func (v Value) String() string {
	if v.Kind == Number {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// Dataset is an ordered set of named series plus scalar results.
type Dataset struct {
	names   []string
	series  map[string][]Value
	scalars map[string]float64
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		series:  make(map[string][]Value),
		scalars: make(map[string]float64),
	}
}

// Set adds or replaces a series. New names keep insertion order.
func (d *Dataset) Set(name string, values []Value) {
	if _, ok := d.series[name]; !ok {
		d.names = append(d.names, name)
	}
	d.series[name] = values
}

// SetFloats adds or replaces a numeric series.
func (d *Dataset) SetFloats(name string, values []float64) {
	vs := make([]Value, len(values))
	for i, f := range values {
		vs[i] = NumberValue(f)
	}
	d.Set(name, vs)
}

// Append adds v to the end of series name, creating it if needed.
func (d *Dataset) Append(name string, v Value) {
	if _, ok := d.series[name]; !ok {
		d.names = append(d.names, name)
	}
	d.series[name] = append(d.series[name], v)
}

// Series returns the values of name.
func (d *Dataset) Series(name string) ([]Value, bool) {
	vs, ok := d.series[name]
	return vs, ok
}

// Has reports whether the series exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.series[name]
	return ok
}

// Names returns the series names in insertion order.
func (d *Dataset) Names() []string {
	return append([]string(nil), d.names...)
}

// Len returns the common series length, 0 for an empty dataset. Call Validate
// first when the lengths may differ.
func (d *Dataset) Len() int {
	if len(d.names) == 0 {
		return 0
	}
	return len(d.series[d.names[0]])
}

// SetScalar stores a named scalar result such as the chosen tempco.
func (d *Dataset) SetScalar(name string, v float64) { d.scalars[name] = v }

// Scalar returns a named scalar result.
func (d *Dataset) Scalar(name string) (float64, bool) {
	v, ok := d.scalars[name]
	return v, ok
}

// Validate checks that every series has the same length.
func (d *Dataset) Validate() error {
	if len(d.names) == 0 {
		return &ValidationError{Reason: "no series"}
	}
	want := len(d.series[d.names[0]])
	for _, name := range d.names[1:] {
		if got := len(d.series[name]); got != want {
			return &ValidationError{
				Series: name,
				Reason: fmt.Sprintf("has %d values, %q has %d", got, d.names[0], want),
			}
		}
	}
	return nil
}

// Floats returns series name as numbers. Every cell must be numeric.
func (d *Dataset) Floats(name string) ([]float64, error) {
	vs, ok := d.series[name]
	if !ok {
		return nil, &ValidationError{Series: name, Reason: "missing"}
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		if !v.IsNumber() {
			return nil, &ValidationError{Series: name, Reason: fmt.Sprintf("row %d is not numeric: %q", i, v.Str)}
		}
		out[i] = v.Num
	}
	return out, nil
}

// Strings returns series name as text, formatting numbers.
func (d *Dataset) Strings(name string) ([]string, error) {
	vs, ok := d.series[name]
	if !ok {
		return nil, &ValidationError{Series: name, Reason: "missing"}
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out, nil
}
