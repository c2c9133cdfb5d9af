package filter

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

type Operator string

const (
	OpEquals    Operator = "equals"
	OpContains  Operator = "contains"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpIn        Operator = "in"
	OpNotIn     Operator = "notIn"
	OpIsNull    Operator = "isNull"
	OpIsNotNull Operator = "isNotNull"
	OpBetween   Operator = "between"
	OpToday     Operator = "today"
	OpThisWeek  Operator = "thisWeek"
	OpThisMonth Operator = "thisMonth"
)

// ValueIndependent returns true for operators that ignore any supplied value.
func (op Operator) ValueIndependent() bool {
	switch op {
	case OpIsNull, OpIsNotNull, OpToday, OpThisWeek, OpThisMonth:
		return true
	}
	return false
}

// Ordered returns true for the range comparisons gt, gte, lt and lte, which
// only take a single scalar operand.
func (op Operator) Ordered() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Value is the operand of a predicate. The concrete type depends on the
// operator: Range for between, NoValue for null checks and date windows,
// Scalar or List otherwise.
type Value interface {
	value()
}

// Scalar is a single JSON value (string, number, bool).
type Scalar struct{ V any }

// List is a JSON array operand, used by in/notIn.
type List struct{ Values []any }

// Range is the [Low, High] operand of between.
type Range struct{ Low, High any }

// NoValue marks an absent operand.
type NoValue struct{}

func (Scalar) value()  {}
func (List) value()    {}
func (Range) value()   {}
func (NoValue) value() {}

// Predicate is one {field, operator, value} clause of a view.
type Predicate struct {
	Field string
	Op    Operator
	Value Value
}

// NoMatchValue is compared against the id column to produce an empty result.
const NoMatchValue = "no-match"

// NoMatch returns a predicate that no record satisfies.
func NoMatch() Predicate {
	return Predicate{Field: "id", Op: OpEquals, Value: Scalar{V: NoMatchValue}}
}

// Str returns the operand as a string if it is a string scalar.
func (p Predicate) Str() (string, bool) {
	s, ok := p.Value.(Scalar)
	if !ok {
		return "", false
	}
	str, ok := s.V.(string)
	return str, ok
}

type wirePredicate struct {
	Field    string          `json:"field"`
	Operator Operator        `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func (p *Predicate) UnmarshalJSON(b []byte) error {
	var w wirePredicate
	if err := json.Unmarshal(b, &w); err != nil {
		return errors.Wrap(err, "decode filter")
	}
	v, err := decodeValue(w.Operator, w.Value)
	if err != nil {
		return errors.Wrapf(err, "decode value of filter %q", w.Field)
	}
	*p = Predicate{Field: w.Field, Op: w.Operator, Value: v}
	return nil
}

func (p Predicate) MarshalJSON() ([]byte, error) {
	w := wirePredicate{Field: p.Field, Operator: p.Op}
	var raw any
	switch v := p.Value.(type) {
	case Scalar:
		raw = v.V
	case List:
		raw = v.Values
	case Range:
		raw = []any{v.Low, v.High}
	default:
		return json.Marshal(w)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	w.Value = b
	return json.Marshal(w)
}

// decodeValue shapes a raw JSON operand according to the operator. A between
// operand that is not a two-element array decodes to NoValue and is later
// ignored by the compiler.
func decodeValue(op Operator, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || op.ValueIndependent() {
		return NoValue{}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	arr, isArr := v.([]any)
	if op == OpBetween {
		if !isArr || len(arr) != 2 {
			return NoValue{}, nil
		}
		return Range{Low: arr[0], High: arr[1]}, nil
	}
	if isArr {
		return List{Values: arr}, nil
	}
	return Scalar{V: v}, nil
}
