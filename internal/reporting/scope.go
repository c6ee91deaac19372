// Package reporting answers dataset and history queries bounded by the
// caller's visibility scope.
package reporting

import (
	"errors"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

// ErrUnauthorized is returned when the caller cannot be resolved to an
// active operator. The absence of a recognized operator always yields the
// most restrictive filter: deny.
var ErrUnauthorized = errors.New("caller is not an active operator")

// ScopeFilter is the request-time predicate derived from an operator's scope.
// The zero value is unrestricted. It is derived, never persisted.
type ScopeFilter struct {
	// Country restricts results to one country. Empty means unrestricted.
	Country string
}

// Unrestricted reports whether the filter applies no country restriction.
func (f ScopeFilter) Unrestricted() bool {
	return f.Country == ""
}

// Allows reports whether a record from the given country passes the filter.
func (f ScopeFilter) Allows(country string) bool {
	return f.Unrestricted() || f.Country == country
}

// scopeFilterFor derives a ScopeFilter from an active operator's scope.
func scopeFilterFor(op *operator.Operator) ScopeFilter {
	if op.Scope == operator.ScopeAll {
		return ScopeFilter{}
	}

	return ScopeFilter{Country: op.Scope}
}
