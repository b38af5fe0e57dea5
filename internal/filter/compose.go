package filter

import (
	"fmt"

	"github.com/fyrsmithlabs/kbgateway/internal/tenant"
)

// TenantKey is the reserved metadata attribute carrying the tenant
// identity on every indexed document.
const TenantKey = "tenant_id"

// Compose builds the filter expression for a tenant-scoped query.
//
// The tenant equality predicate comes first, followed by the user
// predicates in input order. A single conjunct is emitted bare; two or
// more are wrapped in one andAll aggregate. The ordering is not
// semantically significant to the backend but is kept deterministic.
//
// A user predicate with key "tenant_id" does not replace the system
// predicate: the system predicate is appended regardless, and under AND
// a duplicate key can only narrow the result set, never widen it.
//
// Pure function: no I/O, no logging.
func Compose(id tenant.Identity, preds []Predicate, policy UnknownOperatorPolicy) (Expression, error) {
	if id.IsZero() {
		return Expression{}, tenant.ErrMissingTenant
	}

	exprs := make([]Expression, 0, len(preds)+1)
	exprs = append(exprs, Equals(TenantKey, id.String()))

	for _, p := range preds {
		expr, ok := translate(p)
		if !ok {
			if policy == RejectUnknown {
				return Expression{}, fmt.Errorf("%w: %q", ErrUnknownOperator, p.Operator)
			}
			continue
		}
		exprs = append(exprs, expr)
	}

	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return And(exprs...), nil
}

// translate maps a predicate to its wire expression. The second return
// is false for operators outside the recognized set.
func translate(p Predicate) (Expression, bool) {
	switch p.Operator {
	case OpEquals:
		return Equals(p.Key, p.Value), true
	case OpNotEquals:
		return NotEquals(p.Key, p.Value), true
	case OpGreaterThan:
		return GreaterThan(p.Key, p.Value), true
	case OpLessThan:
		return LessThan(p.Key, p.Value), true
	case OpContains:
		return StringContains(p.Key, p.Value), true
	}
	return Expression{}, false
}
