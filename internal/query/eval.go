package query

import (
	"fmt"

	"github.com/roach88/manifest/internal/ir"
)

// Matches evaluates a predicate directly against one property bag. The
// in-memory analog of CompileSQL: both backends must agree on every
// input.
func Matches(pred Predicate, data ir.IRObject) (bool, error) {
	if err := Validate(pred); err != nil {
		return false, err
	}
	return matches(pred, data)
}

func matches(pred Predicate, data ir.IRObject) (bool, error) {
	switch p := pred.(type) {
	case Eq:
		v, ok := data[p.Property]
		if !ok {
			return false, nil
		}
		return scalarEqual(v, p.Value), nil

	case And:
		for _, child := range p.Predicates {
			ok, err := matches(child, data)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("unknown predicate type %T", pred)
}

func scalarEqual(a, b ir.IRValue) bool {
	switch av := a.(type) {
	case ir.IRString:
		bv, ok := b.(ir.IRString)
		return ok && av == bv
	case ir.IRInt:
		bv, ok := b.(ir.IRInt)
		return ok && av == bv
	case ir.IRBool:
		bv, ok := b.(ir.IRBool)
		return ok && av == bv
	}
	return false
}
