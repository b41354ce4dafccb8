// Package query defines the search predicates understood by the case store.
//
// Predicate is a sealed interface: only types in this package implement it, so
// store adapters can switch exhaustively when compiling a predicate to their
// native query language.
//
// Field names address top-level keys of a case payload. The record state is
// addressed with StateIn rather than a field name.
package query

import (
	"fmt"
	"regexp"
)

// Predicate is a filter condition over case records.
type Predicate interface {
	predicateNode()
}

// StateIn matches records whose lifecycle state is one of States.
// An empty States matches nothing.
type StateIn struct {
	States []string
}

// FieldEquals matches records whose payload field equals Value.
type FieldEquals struct {
	Field string
	Value any
}

// FieldRange matches records whose payload field lies within the given bounds.
// Nil bounds are open. Values compare with the store's native ordering, so
// integers compare numerically and RFC 3339 strings chronologically.
type FieldRange struct {
	Field string
	Gt    any
	Gte   any
	Lt    any
	Lte   any
}

// FieldExists matches records whose payload has a non-null value for Field.
type FieldExists struct {
	Field string
}

// FieldNotEmpty matches records whose payload field is a non-empty array.
type FieldNotEmpty struct {
	Field string
}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

// Or matches when any predicate matches. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (StateIn) predicateNode()       {}
func (FieldEquals) predicateNode()   {}
func (FieldRange) predicateNode()    {}
func (FieldExists) predicateNode()   {}
func (FieldNotEmpty) predicateNode() {}
func (Not) predicateNode()           {}
func (And) predicateNode()           {}
func (Or) predicateNode()            {}

// AllOf is shorthand for And{Predicates: ps}.
func AllOf(ps ...Predicate) And { return And{Predicates: ps} }

// AnyOf is shorthand for Or{Predicates: ps}.
func AnyOf(ps ...Predicate) Or { return Or{Predicates: ps} }

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateField reports whether name is usable as a payload field.
func ValidateField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// Validate checks every field name in p, recursively.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case StateIn:
		return nil
	case FieldEquals:
		return ValidateField(pred.Field)
	case FieldRange:
		if pred.Gt == nil && pred.Gte == nil && pred.Lt == nil && pred.Lte == nil {
			return fmt.Errorf("range on %q has no bounds", pred.Field)
		}
		return ValidateField(pred.Field)
	case FieldExists:
		return ValidateField(pred.Field)
	case FieldNotEmpty:
		return ValidateField(pred.Field)
	case Not:
		if pred.Predicate == nil {
			return fmt.Errorf("not: missing predicate")
		}
		return Validate(pred.Predicate)
	case And:
		for _, sub := range pred.Predicates {
			if err := Validate(sub); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, sub := range pred.Predicates {
			if err := Validate(sub); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}
