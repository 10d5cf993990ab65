package query

import (
	"fmt"
	"unicode"

	"github.com/roach88/manifest/internal/ir"
)

// Predicate is a filter over one instance's data. Sealed: the marker
// method keeps the type switch in both backends exhaustive.
type Predicate interface {
	predicateNode()
}

// Eq matches instances whose named property equals a scalar value.
type Eq struct {
	Property string
	Value    ir.IRValue
}

func (Eq) predicateNode() {}

// And matches instances satisfying every child predicate.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Validate checks a predicate before either backend consumes it:
// property names must be plain identifiers (they are spliced into JSON
// paths) and values must be scalars.
func Validate(pred Predicate) error {
	switch p := pred.(type) {
	case Eq:
		if !isIdent(p.Property) {
			return fmt.Errorf("invalid property name %q", p.Property)
		}
		switch p.Value.(type) {
		case ir.IRString, ir.IRInt, ir.IRBool:
			return nil
		default:
			return fmt.Errorf("property %q: only scalar values can be matched", p.Property)
		}
	case And:
		if len(p.Predicates) == 0 {
			return fmt.Errorf("empty conjunction")
		}
		for _, child := range p.Predicates {
			if err := Validate(child); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("nil predicate")
	default:
		return fmt.Errorf("unknown predicate type %T", pred)
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
