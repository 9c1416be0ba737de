// Set (AND-composed predicates) and Order (tie-break sort keys), plus their
// translation onto a *gorm.DB query.
package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Set is an insertion-ordered collection of per-field predicates, implicitly
// AND-ed. A field absent from the set places no constraint on it; a Set with
// no entries matches all rows when reading.
//
// Bulk update/delete helpers refuse an empty Set unless it was built with
// All: silently mutating a whole table through a forgotten filter is the
// failure mode this flag guards against.
type Set struct {
	fields   Fields
	conds    []cond
	matchAll bool
}

type cond struct {
	field string
	spec  FieldSpec
	pred  Predicate
}

// NewSet returns an empty Set over the given declared fields.
func NewSet(fields Fields) *Set {
	return &Set{fields: fields}
}

// All returns an empty Set that is explicitly allowed to address every row
// of the table, including in bulk mutations.
func All(fields Fields) *Set {
	return &Set{fields: fields, matchAll: true}
}

// Where adds a predicate on field. It fails fast with ErrUnknownField or
// ErrInvalidPredicate before anything reaches the database.
func (s *Set) Where(field string, p Predicate) error {
	spec, ok := s.fields[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if err := p.check(field, spec); err != nil {
		return err
	}
	s.conds = append(s.conds, cond{field: field, spec: spec, pred: p})
	return nil
}

// Len returns the number of predicates in the set.
func (s *Set) Len() int { return len(s.conds) }

// Empty reports whether the set holds no predicates.
func (s *Set) Empty() bool { return len(s.conds) == 0 }

// MatchAll reports whether the set was built with All, i.e. an empty filter
// is intentional.
func (s *Set) MatchAll() bool { return s.matchAll }

// Apply translates the set onto tx as a chain of WHERE clauses and returns
// the extended query. An empty set returns tx unchanged (match all rows).
//
// Edge cases handled here rather than forwarded to the engine:
//   - In with zero elements compiles to a contradiction (1 = 0).
//   - NotIn with zero elements compiles to no clause at all (always true).
func (s *Set) Apply(tx *gorm.DB) (*gorm.DB, error) {
	for _, c := range s.conds {
		col := c.spec.Column
		switch c.pred.op {
		case OpEq:
			tx = tx.Where(col+" = ?", c.pred.scalar)
		case OpNeq:
			tx = tx.Where(col+" <> ?", c.pred.scalar)
		case OpGt:
			tx = tx.Where(col+" > ?", c.pred.scalar)
		case OpGte:
			tx = tx.Where(col+" >= ?", c.pred.scalar)
		case OpLt:
			tx = tx.Where(col+" < ?", c.pred.scalar)
		case OpLte:
			tx = tx.Where(col+" <= ?", c.pred.scalar)
		case OpIn:
			if len(c.pred.list) == 0 {
				tx = tx.Where("1 = 0")
			} else {
				tx = tx.Where(col+" IN ?", c.pred.list)
			}
		case OpNotIn:
			if len(c.pred.list) > 0 {
				tx = tx.Where(col+" NOT IN ?", c.pred.list)
			}
		case OpBetween:
			tx = tx.Where(col+" BETWEEN ? AND ?", c.pred.lo, c.pred.hi)
		case OpContains:
			// instr() is byte-wise and therefore case-sensitive on SQLite,
			// unlike LIKE which folds ASCII.
			tx = tx.Where("instr("+col+", ?) > 0", c.pred.scalar)
		case OpContainsFold:
			sub, _ := c.pred.scalar.(string)
			tx = tx.Where("lower("+col+") LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(sub))+"%")
		case OpIsNull:
			tx = tx.Where(col + " IS NULL")
		case OpNotNull:
			tx = tx.Where(col + " IS NOT NULL")
		default:
			return nil, fmt.Errorf("%w: op %d on field %q", ErrUnsupportedOperator, c.pred.op, c.field)
		}
	}
	return tx, nil
}

// escapeLike neutralizes LIKE wildcards inside a substring pattern so that a
// user-supplied "%" or "_" matches itself. The clause it feeds declares
// ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Direction is a sort direction for one Order key.
type Direction int

const (
	// Asc sorts smallest-first.
	Asc Direction = iota
	// Desc sorts largest-first.
	Desc
)

// Order is an insertion-ordered list of sort keys; the first key added is
// the primary sort, later keys break ties. A nil or empty Order leaves row
// order to the backend, which callers must treat as non-deterministic.
type Order struct {
	fields Fields
	keys   []orderKey
}

type orderKey struct {
	column string
	dir    Direction
}

// NewOrder returns an empty Order over the given declared fields.
func NewOrder(fields Fields) *Order {
	return &Order{fields: fields}
}

// By appends a sort key. Unknown fields fail with ErrUnknownField.
func (o *Order) By(field string, dir Direction) error {
	spec, ok := o.fields[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	o.keys = append(o.keys, orderKey{column: spec.Column, dir: dir})
	return nil
}

// Len returns the number of sort keys.
func (o *Order) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Apply appends the order's keys to tx as ORDER BY clauses, first key first.
// A nil Order is a no-op.
func (o *Order) Apply(tx *gorm.DB) *gorm.DB {
	if o == nil {
		return tx
	}
	for _, k := range o.keys {
		if k.dir == Desc {
			tx = tx.Order(k.column + " DESC")
		} else {
			tx = tx.Order(k.column + " ASC")
		}
	}
	return tx
}
