// Package query implements the typed filter/sort/pagination layer shared by
// all repositories. Callers describe what they want as a Set of per-field
// predicates (AND-composed), an optional Order, and a Page window; the
// package translates those into GORM clauses against an explicit per-entity
// field→column mapping.
//
// Design notes:
//   - Field names are validated against a declared Fields map, so a typo or
//     an unrecognized sort key fails at construction time instead of leaking
//     into SQL as a broken column reference.
//   - Predicate constructors fix the value shape per operator (scalar, pair,
//     list, none), so an ill-shaped predicate is unrepresentable; only the
//     operator/field-kind combination is left to runtime validation.
//   - Translation is pure: a given (operator, value, column) triple always
//     produces the same clause fragment.
package query

import (
	"errors"
	"fmt"
)

// Kind is the semantic type of a filterable field. It restricts which
// operators a predicate on that field may use.
type Kind int

const (
	// String fields accept equality, set and substring operators.
	String Kind = iota
	// Number fields additionally accept ordering and range operators.
	Number
	// Time fields behave like Number for ordering purposes.
	Time
	// Bool fields accept equality and null checks only.
	Bool
)

// Op identifies a predicate operator.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpBetween
	OpContains
	OpContainsFold
	OpIsNull
	OpNotNull
)

// Sentinel errors surfaced during Set/Order construction and translation.
var (
	// ErrUnknownField is returned when a predicate or sort key references a
	// field that is not declared in the entity's Fields map.
	ErrUnknownField = errors.New("unknown query field")

	// ErrInvalidPredicate is returned when an operator is not valid for the
	// field's declared Kind (e.g. Between on a string field).
	ErrInvalidPredicate = errors.New("invalid predicate for field kind")

	// ErrUnsupportedOperator indicates a predicate reached the translator
	// with an operator it has no case for. This is a defect, not user error.
	ErrUnsupportedOperator = errors.New("unsupported predicate operator")
)

// FieldSpec declares one filterable/sortable field of an entity: the backing
// column name and its semantic Kind.
type FieldSpec struct {
	Column string
	Kind   Kind
}

// Fields is the declared field→column mapping for one entity. Each repository
// declares its own next to the GORM model so the set of addressable columns
// is explicit and reviewable.
type Fields map[string]FieldSpec

// Predicate is a single field-level filter condition: an operator plus a
// value of the operator's fixed shape. Construct predicates only through the
// typed constructors below.
type Predicate struct {
	op     Op
	scalar any
	lo, hi any
	list   []any
}

// Eq matches rows whose field equals v.
func Eq(v any) Predicate { return Predicate{op: OpEq, scalar: v} }

// Neq matches rows whose field differs from v.
func Neq(v any) Predicate { return Predicate{op: OpNeq, scalar: v} }

// Gt matches rows whose field is strictly greater than v.
func Gt(v any) Predicate { return Predicate{op: OpGt, scalar: v} }

// Gte matches rows whose field is greater than or equal to v.
func Gte(v any) Predicate { return Predicate{op: OpGte, scalar: v} }

// Lt matches rows whose field is strictly less than v.
func Lt(v any) Predicate { return Predicate{op: OpLt, scalar: v} }

// Lte matches rows whose field is less than or equal to v.
func Lte(v any) Predicate { return Predicate{op: OpLte, scalar: v} }

// In matches rows whose field equals any element of vs. An empty vs matches
// no rows; the translator special-cases it instead of emitting "IN ()".
func In(vs ...any) Predicate { return Predicate{op: OpIn, list: vs} }

// NotIn matches rows whose field equals no element of vs. An empty vs
// matches all rows.
func NotIn(vs ...any) Predicate { return Predicate{op: OpNotIn, list: vs} }

// Between matches rows whose field lies in [lo, hi], inclusive on both ends.
// Callers are expected to pass lo <= hi; reversed bounds simply match no rows.
func Between(lo, hi any) Predicate { return Predicate{op: OpBetween, lo: lo, hi: hi} }

// Contains matches string fields containing sub (case-sensitive).
func Contains(sub string) Predicate { return Predicate{op: OpContains, scalar: sub} }

// ContainsFold matches string fields containing sub, ignoring case.
func ContainsFold(sub string) Predicate { return Predicate{op: OpContainsFold, scalar: sub} }

// IsNull matches rows whose field is NULL.
func IsNull() Predicate { return Predicate{op: OpIsNull} }

// NotNull matches rows whose field is not NULL.
func NotNull() Predicate { return Predicate{op: OpNotNull} }

// Op returns the predicate's operator, mainly for diagnostics.
func (p Predicate) Op() Op { return p.op }

// validFor reports whether the predicate's operator is applicable to a field
// of the given Kind.
func (p Predicate) validFor(k Kind) bool {
	switch p.op {
	case OpEq, OpNeq, OpIsNull, OpNotNull:
		return true
	case OpIn, OpNotIn:
		return k != Bool
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return k == Number || k == Time
	case OpContains, OpContainsFold:
		return k == String
	default:
		return false
	}
}

// check validates the predicate against a declared field, wrapping the
// sentinel errors with enough context to identify the offending field.
func (p Predicate) check(field string, spec FieldSpec) error {
	if !p.validFor(spec.Kind) {
		return fmt.Errorf("%w: field %q (kind %d) with op %d", ErrInvalidPredicate, field, spec.Kind, p.op)
	}
	return nil
}
