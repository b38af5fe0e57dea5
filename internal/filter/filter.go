// Package filter composes metadata predicates into the boolean filter
// expression the retrieval backend understands. The mandatory tenant
// predicate is always part of the composed expression; user predicates
// can only narrow the result set, never widen it.
package filter

import "errors"

// Operator is a comparison operator accepted on inbound predicates.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
)

// Valid reports whether op is one of the recognized operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains:
		return true
	}
	return false
}

// Predicate is a single user-supplied metadata condition.
type Predicate struct {
	Key      string   `json:"key"`
	Value    any      `json:"value"`
	Operator Operator `json:"operator"`
}

// ErrUnknownOperator is returned by Compose under RejectUnknown when a
// predicate carries an operator outside the recognized set.
var ErrUnknownOperator = errors.New("unknown filter operator")

// UnknownOperatorPolicy names how Compose treats a predicate whose
// operator is not recognized.
type UnknownOperatorPolicy int

const (
	// DropUnknown silently drops the predicate. This mirrors the historic
	// behavior; note that a mistyped operator then widens the result set
	// relative to the caller's intent.
	DropUnknown UnknownOperatorPolicy = iota

	// RejectUnknown fails the whole composition with ErrUnknownOperator.
	RejectUnknown
)
