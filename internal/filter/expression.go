package filter

import "fmt"

// Condition is a single key/value comparison in backend wire form.
type Condition struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Expression is the backend filter wire form. Exactly one field is set:
// either a single comparison or an andAll aggregate of sub-expressions.
//
//	{"equals": {"key": "year", "value": 2024}}
//	{"andAll": [ ... ]}
type Expression struct {
	Equals         *Condition   `json:"equals,omitempty"`
	NotEquals      *Condition   `json:"notEquals,omitempty"`
	GreaterThan    *Condition   `json:"greaterThan,omitempty"`
	LessThan       *Condition   `json:"lessThan,omitempty"`
	StringContains *Condition   `json:"stringContains,omitempty"`
	AndAll         []Expression `json:"andAll,omitempty"`
}

// IsZero reports whether no field of the expression is set.
func (e Expression) IsZero() bool {
	return e.Equals == nil && e.NotEquals == nil && e.GreaterThan == nil &&
		e.LessThan == nil && e.StringContains == nil && len(e.AndAll) == 0
}

// Equals builds an equality comparison.
func Equals(key string, value any) Expression {
	return Expression{Equals: &Condition{Key: key, Value: value}}
}

// NotEquals builds an inequality comparison.
func NotEquals(key string, value any) Expression {
	return Expression{NotEquals: &Condition{Key: key, Value: value}}
}

// GreaterThan builds a greater-than comparison.
func GreaterThan(key string, value any) Expression {
	return Expression{GreaterThan: &Condition{Key: key, Value: value}}
}

// LessThan builds a less-than comparison.
func LessThan(key string, value any) Expression {
	return Expression{LessThan: &Condition{Key: key, Value: value}}
}

// StringContains builds a substring comparison. The backend only accepts
// string operands here, so the value is coerced to its string form.
func StringContains(key string, value any) Expression {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprintf("%v", value)
	}
	return Expression{StringContains: &Condition{Key: key, Value: s}}
}

// And wraps the given expressions in a single andAll aggregate.
func And(exprs ...Expression) Expression {
	return Expression{AndAll: exprs}
}
