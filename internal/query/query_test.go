package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifest/internal/ir"
)

func TestCompileSQL(t *testing.T) {
	clause, args, err := CompileSQL(Eq{Property: "status", Value: ir.IRString("open")})
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.status') = ?", clause)
	assert.Equal(t, []any{"open"}, args)

	clause, args, err = CompileSQL(And{Predicates: []Predicate{
		Eq{Property: "status", Value: ir.IRString("open")},
		Eq{Property: "quantity", Value: ir.IRInt(2)},
		Eq{Property: "urgent", Value: ir.IRBool(true)},
	}})
	require.NoError(t, err)
	assert.Equal(t,
		"(json_extract(data, '$.status') = ? AND json_extract(data, '$.quantity') = ? AND json_extract(data, '$.urgent') = ?)",
		clause)
	assert.Equal(t, []any{"open", int64(2), int64(1)}, args)
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		pred Predicate
	}{
		{"injection in property", Eq{Property: "x') OR 1=1 --", Value: ir.IRString("v")}},
		{"empty property", Eq{Property: "", Value: ir.IRString("v")}},
		{"digit-leading property", Eq{Property: "1x", Value: ir.IRString("v")}},
		{"array value", Eq{Property: "tags", Value: ir.IRArray{}}},
		{"object value", Eq{Property: "meta", Value: ir.IRObject{}}},
		{"empty conjunction", And{}},
		{"nil predicate", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := CompileSQL(tc.pred)
			assert.Error(t, err)
			_, err = Matches(tc.pred, ir.IRObject{})
			assert.Error(t, err)
		})
	}
}

func TestMatches(t *testing.T) {
	data := ir.IRObject{
		"status":   ir.IRString("open"),
		"quantity": ir.IRInt(2),
		"urgent":   ir.IRBool(true),
	}

	ok, err := Matches(Eq{Property: "status", Value: ir.IRString("open")}, data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(Eq{Property: "status", Value: ir.IRString("done")}, data)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(Eq{Property: "missing", Value: ir.IRString("x")}, data)
	require.NoError(t, err)
	assert.False(t, ok, "absent properties never match")

	ok, err = Matches(And{Predicates: []Predicate{
		Eq{Property: "status", Value: ir.IRString("open")},
		Eq{Property: "quantity", Value: ir.IRInt(2)},
	}}, data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(And{Predicates: []Predicate{
		Eq{Property: "status", Value: ir.IRString("open")},
		Eq{Property: "quantity", Value: ir.IRInt(99)},
	}}, data)
	require.NoError(t, err)
	assert.False(t, ok)

	// Type-mismatched scalars never match.
	ok, err = Matches(Eq{Property: "quantity", Value: ir.IRString("2")}, data)
	require.NoError(t, err)
	assert.False(t, ok)
}
