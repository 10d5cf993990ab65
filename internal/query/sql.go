package query

import (
	"fmt"
	"strings"

	"github.com/roach88/manifest/internal/ir"
)

// CompileSQL renders a predicate as a parameterized SQL fragment over
// the instances table's data column. Property names were validated as
// identifiers, so splicing them into the JSON path is safe; values
// always travel as bind parameters.
func CompileSQL(pred Predicate) (string, []any, error) {
	if err := Validate(pred); err != nil {
		return "", nil, err
	}
	return compileSQL(pred)
}

func compileSQL(pred Predicate) (string, []any, error) {
	switch p := pred.(type) {
	case Eq:
		arg, err := bindValue(p.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("json_extract(data, '$.%s') = ?", p.Property), []any{arg}, nil

	case And:
		clauses := make([]string, 0, len(p.Predicates))
		var args []any
		for _, child := range p.Predicates {
			clause, childArgs, err := compileSQL(child)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, childArgs...)
		}
		return "(" + strings.Join(clauses, " AND ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("unknown predicate type %T", pred)
}

// bindValue converts a scalar to its SQL bind representation. Booleans
// become 0/1 to match what json_extract returns for JSON booleans.
func bindValue(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
