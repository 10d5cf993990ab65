package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifest/internal/ir"
)

func testEnv() *evalEnv {
	return &evalEnv{
		instance: ir.IRObject{
			"status":   ir.IRString("open"),
			"quantity": ir.IRInt(4),
			"tags":     ir.IRArray{ir.IRString("hot"), ir.IRString("rush")},
		},
		params: ir.IRObject{
			"userId": ir.IRString("u-1"),
			"amount": ir.IRInt(3),
		},
		user:  User{ID: "u-1", TenantID: "t-1", Role: "manager"},
		now:   func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
		newID: func() string { return "fixed-id" },
	}
}

func TestEval_Operators(t *testing.T) {
	env := testEnv()

	cases := []struct {
		name string
		expr *ir.Expr
		want ir.IRValue
	}{
		{"string equality", ir.Binary("==", ir.Member(ir.Ident("self"), "status"), ir.StringLit("open")), ir.IRBool(true)},
		{"inequality", ir.Binary("!=", ir.Member(ir.Ident("self"), "status"), ir.StringLit("done")), ir.IRBool(true)},
		{"int comparison", ir.Binary(">", ir.Member(ir.Ident("self"), "quantity"), ir.IntLit(3)), ir.IRBool(true)},
		{"string comparison", ir.Binary("<", ir.StringLit("a"), ir.StringLit("b")), ir.IRBool(true)},
		{"arithmetic", ir.Binary("+", ir.Member(ir.Ident("self"), "quantity"), ir.Member(ir.Ident("params"), "amount")), ir.IRInt(7)},
		{"concat", ir.Binary("+", ir.StringLit("a"), ir.StringLit("b")), ir.IRString("ab")},
		{"and short-circuit", ir.Binary("and", ir.BoolLit(false), ir.Binary("/", ir.IntLit(1), ir.IntLit(0))), ir.IRBool(false)},
		{"or short-circuit", ir.Binary("or", ir.BoolLit(true), ir.Binary("/", ir.IntLit(1), ir.IntLit(0))), ir.IRBool(true)},
		{"in array", ir.Binary("in", ir.StringLit("hot"), ir.Member(ir.Ident("self"), "tags")), ir.IRBool(true)},
		{"not in array", ir.Binary("in", ir.StringLit("cold"), ir.Member(ir.Ident("self"), "tags")), ir.IRBool(false)},
		{"array contains", ir.Binary("contains", ir.Member(ir.Ident("self"), "tags"), ir.StringLit("rush")), ir.IRBool(true)},
		{"string contains", ir.Binary("contains", ir.StringLit("in_progress"), ir.StringLit("progress")), ir.IRBool(true)},
		{"negation", &ir.Expr{Kind: ir.ExprUnary, Op: "!", Target: ir.BoolLit(false)}, ir.IRBool(true)},
		{"ternary", &ir.Expr{Kind: ir.ExprTernary, Cond: ir.BoolLit(true), Then: ir.IntLit(1), Else: ir.IntLit(2)}, ir.IRInt(1)},
		{"bare param", ir.Ident("userId"), ir.IRString("u-1")},
		{"user role", ir.Member(ir.Ident("user"), "role"), ir.IRString("manager")},
		{"user tenant", ir.Member(ir.Ident("user"), "tenantId"), ir.IRString("t-1")},
		{"interpolation", &ir.Expr{Kind: ir.ExprInterp, Elems: []*ir.Expr{
			ir.StringLit("task "),
			ir.Member(ir.Ident("self"), "status"),
			ir.StringLit(" x"),
			ir.Member(ir.Ident("self"), "quantity"),
		}}, ir.IRString("task open x4")},
		{"interpolation of bool", &ir.Expr{Kind: ir.ExprInterp, Elems: []*ir.Expr{
			ir.Binary("==", ir.IntLit(1), ir.IntLit(1)),
		}}, ir.IRString("true")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.eval(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEval_ComputedProperties(t *testing.T) {
	env := testEnv()
	env.entity = &ir.Entity{Name: "Task", Properties: []ir.Property{
		{Name: "status", Kind: ir.PropertyField, Type: "string"},
		{Name: "label", Kind: ir.PropertyComputed, Type: "string",
			Expr: ir.Binary("+", ir.Member(ir.Ident("self"), "status"), ir.StringLit("!"))},
		{Name: "loud", Kind: ir.PropertyComputed, Type: "string",
			Expr: ir.Binary("+", ir.Member(ir.Ident("self"), "label"), ir.StringLit("?"))},
		{Name: "quantity", Kind: ir.PropertyComputed, Type: "int", Expr: ir.IntLit(99)},
		{Name: "selfish", Kind: ir.PropertyComputed, Type: "string",
			Expr: ir.Member(ir.Ident("self"), "selfish")},
	}}

	got, err := env.eval(ir.Member(ir.Ident("self"), "label"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("open!"), got)

	// Computed properties may build on each other.
	got, err = env.eval(ir.Member(ir.Ident("self"), "loud"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("open!?"), got)

	// A stored value shadows a computed definition of the same name.
	got, err = env.eval(ir.Member(ir.Ident("self"), "quantity"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(4), got)

	_, err = env.eval(ir.Member(ir.Ident("self"), "selfish"))
	require.Error(t, err)
	assert.Equal(t, CodeEval, CodeOf(err))
}

func TestEval_Errors(t *testing.T) {
	env := testEnv()

	cases := []struct {
		name string
		expr *ir.Expr
	}{
		{"unknown identifier", ir.Ident("ghost")},
		{"missing property", ir.Member(ir.Ident("self"), "ghost")},
		{"division by zero", ir.Binary("/", ir.IntLit(1), ir.IntLit(0))},
		{"type mismatch add", ir.Binary("+", ir.IntLit(1), ir.StringLit("x"))},
		{"type mismatch compare", ir.Binary("<", ir.IntLit(1), ir.StringLit("x"))},
		{"self as value", ir.Ident("self")},
		{"non-boolean guard operand", ir.Binary("and", ir.IntLit(1), ir.BoolLit(true))},
		{"interpolating an array", &ir.Expr{Kind: ir.ExprInterp, Elems: []*ir.Expr{
			ir.Member(ir.Ident("self"), "tags"),
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.eval(tc.expr)
			require.Error(t, err)
			assert.Equal(t, CodeEval, CodeOf(err))
		})
	}
}

func TestEval_Builtins(t *testing.T) {
	env := testEnv()

	now, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: "now"})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("2026-03-14T09:30:00Z"), now)

	id, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: "uuid"})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("fixed-id"), id)

	valid, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: "validTransition",
		Args: []*ir.Expr{ir.StringLit("open"), ir.StringLit("in_progress")}})
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), valid)

	invalid, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: "validTransition",
		Args: []*ir.Expr{ir.StringLit("done"), ir.StringLit("open")}})
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(false), invalid)

	bogus, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: "validTransition",
		Args: []*ir.Expr{ir.StringLit("limbo"), ir.StringLit("open")}})
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(false), bogus)
}

func TestEval_ClaimBuiltins(t *testing.T) {
	env := testEnv()
	env.instance["claims"] = ir.IRArray{
		ir.IRObject{
			"claimId":   ir.IRString("c-1"),
			"userId":    ir.IRString("u-1"),
			"claimedAt": ir.IRString("2026-03-14T09:00:00Z"),
		},
	}

	call := func(fn, uid string) ir.IRValue {
		v, err := env.eval(&ir.Expr{Kind: ir.ExprCall, Name: fn, Args: []*ir.Expr{ir.StringLit(uid)}})
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, ir.IRBool(true), call("canClaim", "u-1"), "re-claim by holder is idempotent")
	assert.Equal(t, ir.IRBool(false), call("canClaim", "u-2"))
	assert.Equal(t, ir.IRBool(true), call("canRelease", "u-1"))
	assert.Equal(t, ir.IRBool(false), call("canRelease", "u-2"))

	delete(env.instance, "claims")
	assert.Equal(t, ir.IRBool(true), call("canClaim", "u-2"))
	assert.Equal(t, ir.IRBool(false), call("canRelease", "u-2"))
}
