package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/roach88/manifest/internal/ir"
	"github.com/roach88/manifest/internal/lifecycle"
)

// evalEnv carries everything an expression can see: the instance
// property bag, the command parameters, and the acting user. The clock
// and id generator come from the engine so expression results stay
// deterministic under test.
//
// entity, when set, lets self.<name> resolve computed properties that
// have no stored value; computing tracks in-flight computed evaluations
// so a self-referential chain fails instead of recursing forever.
type evalEnv struct {
	instance  ir.IRObject
	entity    *ir.Entity
	params    ir.IRObject
	user      User
	now       func() time.Time
	newID     func() string
	computing map[string]bool
}

func (env *evalEnv) eval(expr *ir.Expr) (ir.IRValue, error) {
	if expr == nil {
		return nil, errf(CodeEval, "nil expression")
	}

	switch expr.Kind {
	case ir.ExprString:
		return ir.IRString(expr.Str), nil
	case ir.ExprInt:
		return ir.IRInt(expr.Int), nil
	case ir.ExprBool:
		return ir.IRBool(expr.Bool), nil

	case ir.ExprIdent:
		return env.evalIdent(expr.Name)

	case ir.ExprMember:
		return env.evalMember(expr)

	case ir.ExprUnary:
		return env.evalUnary(expr)

	case ir.ExprBinary:
		return env.evalBinary(expr)

	case ir.ExprTernary:
		cond, err := env.evalBool(expr.Cond)
		if err != nil {
			return nil, err
		}
		if cond {
			return env.eval(expr.Then)
		}
		return env.eval(expr.Else)

	case ir.ExprCall:
		return env.evalCall(expr)

	case ir.ExprArray:
		arr := make(ir.IRArray, 0, len(expr.Elems))
		for _, el := range expr.Elems {
			v, err := env.eval(el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case ir.ExprObject:
		obj := make(ir.IRObject, len(expr.Fields))
		for _, f := range expr.Fields {
			v, err := env.eval(f.Value)
			if err != nil {
				return nil, err
			}
			obj[f.Key] = v
		}
		return obj, nil

	case ir.ExprInterp:
		var sb strings.Builder
		for _, el := range expr.Elems {
			v, err := env.eval(el)
			if err != nil {
				return nil, err
			}
			s, err := stringify(v)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
		return ir.IRString(sb.String()), nil
	}

	return nil, errf(CodeEval, "unsupported expression kind %q", expr.Kind)
}

// stringify renders a scalar for string interpolation. Arrays and
// objects have no single textual form and are rejected.
func stringify(v ir.IRValue) (string, error) {
	switch t := v.(type) {
	case ir.IRString:
		return string(t), nil
	case ir.IRInt:
		return strconv.FormatInt(int64(t), 10), nil
	case ir.IRBool:
		return strconv.FormatBool(bool(t)), nil
	case ir.IRNull:
		return "null", nil
	default:
		return "", errf(CodeEval, "cannot interpolate a non-scalar value")
	}
}

func (env *evalEnv) evalBool(expr *ir.Expr) (bool, error) {
	v, err := env.eval(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(ir.IRBool)
	if !ok {
		return false, errf(CodeEval, "expression did not evaluate to a boolean")
	}
	return bool(b), nil
}

func (env *evalEnv) evalIdent(name string) (ir.IRValue, error) {
	switch name {
	case "self", "params", "user":
		return nil, errf(CodeEval, "%s cannot be used as a value", name)
	}
	if v, ok := env.params[name]; ok {
		return v, nil
	}
	return nil, errf(CodeEval, "unknown identifier %q", name)
}

func (env *evalEnv) evalMember(expr *ir.Expr) (ir.IRValue, error) {
	if expr.Target.Kind == ir.ExprIdent {
		switch expr.Target.Name {
		case "self":
			if v, ok := env.instance[expr.Name]; ok {
				return v, nil
			}
			if env.entity != nil {
				if prop := env.entity.Property(expr.Name); prop != nil && prop.Kind == ir.PropertyComputed {
					return env.evalComputed(prop)
				}
			}
			return nil, errf(CodeEval, "property %q has no value", expr.Name)
		case "params":
			if v, ok := env.params[expr.Name]; ok {
				return v, nil
			}
			return nil, errf(CodeEval, "parameter %q has no value", expr.Name)
		case "user":
			switch expr.Name {
			case "id":
				return ir.IRString(env.user.ID), nil
			case "tenantId":
				return ir.IRString(env.user.TenantID), nil
			case "role":
				return ir.IRString(env.user.Role), nil
			}
			return nil, errf(CodeEval, "unknown user field %q", expr.Name)
		}
	}

	target, err := env.eval(expr.Target)
	if err != nil {
		return nil, err
	}
	obj, ok := target.(ir.IRObject)
	if !ok {
		return nil, errf(CodeEval, "cannot access %q on a non-object value", expr.Name)
	}
	if v, ok := obj[expr.Name]; ok {
		return v, nil
	}
	return nil, errf(CodeEval, "field %q has no value", expr.Name)
}

// evalComputed evaluates a computed property's expression against the
// current instance. Computed properties may reference each other; a
// cycle is an evaluation error, not a stack overflow.
func (env *evalEnv) evalComputed(prop *ir.Property) (ir.IRValue, error) {
	if env.computing[prop.Name] {
		return nil, errf(CodeEval, "computed property %q depends on itself", prop.Name)
	}
	if env.computing == nil {
		env.computing = make(map[string]bool)
	}
	env.computing[prop.Name] = true
	defer delete(env.computing, prop.Name)
	return env.eval(prop.Expr)
}

func (env *evalEnv) evalUnary(expr *ir.Expr) (ir.IRValue, error) {
	v, err := env.eval(expr.Target)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case "!", "not":
		b, ok := v.(ir.IRBool)
		if !ok {
			return nil, errf(CodeEval, "operator %q requires a boolean", expr.Op)
		}
		return ir.IRBool(!b), nil
	case "-":
		n, ok := v.(ir.IRInt)
		if !ok {
			return nil, errf(CodeEval, "operator %q requires an integer", expr.Op)
		}
		return ir.IRInt(-n), nil
	}
	return nil, errf(CodeEval, "unknown unary operator %q", expr.Op)
}

func (env *evalEnv) evalBinary(expr *ir.Expr) (ir.IRValue, error) {
	// and/or short-circuit: the right side only evaluates when the
	// left side does not decide the result.
	switch expr.Op {
	case "and":
		left, err := env.evalBool(expr.Left)
		if err != nil {
			return nil, err
		}
		if !left {
			return ir.IRBool(false), nil
		}
		right, err := env.evalBool(expr.Right)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(right), nil
	case "or":
		left, err := env.evalBool(expr.Left)
		if err != nil {
			return nil, err
		}
		if left {
			return ir.IRBool(true), nil
		}
		right, err := env.evalBool(expr.Right)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(right), nil
	}

	left, err := env.eval(expr.Left)
	if err != nil {
		return nil, err
	}
	right, err := env.eval(expr.Right)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case "==":
		return ir.IRBool(equalValues(left, right)), nil
	case "!=":
		return ir.IRBool(!equalValues(left, right)), nil

	case "<", "<=", ">", ">=":
		return compareValues(expr.Op, left, right)

	case "+":
		if l, ok := left.(ir.IRInt); ok {
			r, ok := right.(ir.IRInt)
			if !ok {
				return nil, errf(CodeEval, "operator + requires two integers or two strings")
			}
			return l + r, nil
		}
		if l, ok := left.(ir.IRString); ok {
			r, ok := right.(ir.IRString)
			if !ok {
				return nil, errf(CodeEval, "operator + requires two integers or two strings")
			}
			return l + r, nil
		}
		return nil, errf(CodeEval, "operator + requires two integers or two strings")

	case "-", "*", "/":
		l, lok := left.(ir.IRInt)
		r, rok := right.(ir.IRInt)
		if !lok || !rok {
			return nil, errf(CodeEval, "operator %q requires integers", expr.Op)
		}
		switch expr.Op {
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		default:
			if r == 0 {
				return nil, errf(CodeEval, "division by zero")
			}
			return l / r, nil
		}

	case "in":
		return containsValue(right, left)
	case "contains":
		return containsValue(left, right)
	}

	return nil, errf(CodeEval, "unknown operator %q", expr.Op)
}

func (env *evalEnv) evalCall(expr *ir.Expr) (ir.IRValue, error) {
	args := make([]ir.IRValue, 0, len(expr.Args))
	for _, a := range expr.Args {
		v, err := env.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch expr.Name {
	case "now":
		if len(args) != 0 {
			return nil, errf(CodeEval, "now() takes no arguments")
		}
		return ir.IRString(env.now().UTC().Format(time.RFC3339)), nil

	case "uuid":
		if len(args) != 0 {
			return nil, errf(CodeEval, "uuid() takes no arguments")
		}
		return ir.IRString(env.newID()), nil

	case "validTransition":
		from, to, err := twoStringArgs(expr.Name, args)
		if err != nil {
			return nil, err
		}
		f, ferr := lifecycle.ParseStatus(from)
		t, terr := lifecycle.ParseStatus(to)
		if ferr != nil || terr != nil {
			return ir.IRBool(false), nil
		}
		return ir.IRBool(lifecycle.IsValidTransition(f, t)), nil

	case "canClaim":
		uid, err := oneStringArg(expr.Name, args)
		if err != nil {
			return nil, err
		}
		return ir.IRBool(lifecycle.ValidateClaim(env.activeClaims(), uid) == nil), nil

	case "canRelease":
		uid, err := oneStringArg(expr.Name, args)
		if err != nil {
			return nil, err
		}
		_, relErr := lifecycle.ValidateRelease(env.activeClaims(), uid)
		return ir.IRBool(relErr == nil), nil
	}

	return nil, errf(CodeEval, "unknown function %q", expr.Name)
}

// activeClaims reads the instance's claims property, a conventional
// array of {claimId, userId, claimedAt} objects. Missing or malformed
// entries are ignored rather than failing the whole guard.
func (env *evalEnv) activeClaims() []lifecycle.Claim {
	arr, ok := env.instance["claims"].(ir.IRArray)
	if !ok {
		return nil
	}
	claims := make([]lifecycle.Claim, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(ir.IRObject)
		if !ok {
			continue
		}
		uid, ok := obj["userId"].(ir.IRString)
		if !ok || uid == "" {
			continue
		}
		c := lifecycle.Claim{UserID: string(uid)}
		if id, ok := obj["claimId"].(ir.IRString); ok {
			c.ClaimID = string(id)
		}
		if at, ok := obj["claimedAt"].(ir.IRString); ok {
			if ts, err := time.Parse(time.RFC3339, string(at)); err == nil {
				c.ClaimedAt = ts
			}
		}
		claims = append(claims, c)
	}
	return claims
}

func oneStringArg(fn string, args []ir.IRValue) (string, error) {
	if len(args) != 1 {
		return "", errf(CodeEval, "%s() takes exactly one argument", fn)
	}
	s, ok := args[0].(ir.IRString)
	if !ok {
		return "", errf(CodeEval, "%s() requires a string argument", fn)
	}
	return string(s), nil
}

func twoStringArgs(fn string, args []ir.IRValue) (string, string, error) {
	if len(args) != 2 {
		return "", "", errf(CodeEval, "%s() takes exactly two arguments", fn)
	}
	a, aok := args[0].(ir.IRString)
	b, bok := args[1].(ir.IRString)
	if !aok || !bok {
		return "", "", errf(CodeEval, "%s() requires string arguments", fn)
	}
	return string(a), string(b), nil
}

func compareValues(op string, left, right ir.IRValue) (ir.IRValue, error) {
	var cmp int
	switch l := left.(type) {
	case ir.IRInt:
		r, ok := right.(ir.IRInt)
		if !ok {
			return nil, errf(CodeEval, "operator %q requires matching types", op)
		}
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	case ir.IRString:
		r, ok := right.(ir.IRString)
		if !ok {
			return nil, errf(CodeEval, "operator %q requires matching types", op)
		}
		cmp = strings.Compare(string(l), string(r))
	default:
		return nil, errf(CodeEval, "operator %q requires integers or strings", op)
	}

	switch op {
	case "<":
		return ir.IRBool(cmp < 0), nil
	case "<=":
		return ir.IRBool(cmp <= 0), nil
	case ">":
		return ir.IRBool(cmp > 0), nil
	default:
		return ir.IRBool(cmp >= 0), nil
	}
}

// containsValue implements both "x in collection" and
// "collection contains x". Strings test substring containment.
func containsValue(collection, needle ir.IRValue) (ir.IRValue, error) {
	switch c := collection.(type) {
	case ir.IRArray:
		for _, el := range c {
			if equalValues(el, needle) {
				return ir.IRBool(true), nil
			}
		}
		return ir.IRBool(false), nil
	case ir.IRString:
		n, ok := needle.(ir.IRString)
		if !ok {
			return nil, errf(CodeEval, "string containment requires a string")
		}
		return ir.IRBool(strings.Contains(string(c), string(n))), nil
	}
	return nil, errf(CodeEval, "containment requires an array or string")
}

func equalValues(a, b ir.IRValue) bool {
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
	case ir.IRNull:
		_, ok := b.(ir.IRNull)
		return ok
	case ir.IRArray:
		bv, ok := b.(ir.IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case ir.IRObject:
		bv, ok := b.(ir.IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !equalValues(v, w) {
				return false
			}
		}
		return true
	}
	return false
}
