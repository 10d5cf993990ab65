package ir

// ExprKind discriminates expression nodes. The set is closed: the
// evaluator switches exhaustively and treats anything else as a
// compiler bug.
type ExprKind string

const (
	ExprString  ExprKind = "string"
	ExprInt     ExprKind = "int"
	ExprBool    ExprKind = "bool"
	ExprIdent   ExprKind = "ident"
	ExprMember  ExprKind = "member"
	ExprUnary   ExprKind = "unary"
	ExprBinary  ExprKind = "binary"
	ExprTernary ExprKind = "ternary"
	ExprCall    ExprKind = "call"
	ExprArray   ExprKind = "array"
	ExprObject  ExprKind = "object"
	ExprInterp  ExprKind = "interp"
)

// Expr is one node of a guard, action, default, or payload expression.
// A single struct with kind-dependent fields keeps the IR JSON-
// serializable without custom interface decoding.
//
// Field usage by kind:
//
//	string         Str
//	int            Int
//	bool           Bool
//	ident          Name (self, params, user, or a bare property name)
//	member         Target, Name (Target.Name)
//	unary          Op (!, not, -), Target
//	binary         Op, Left, Right
//	ternary        Cond, Then, Else
//	call           Name (now, uuid), Args
//	array          Elems
//	object         Fields (declaration order)
//	interp         Elems (literal and embedded parts, in order)
type Expr struct {
	Kind ExprKind `json:"kind"`

	Str  string `json:"str,omitempty"`
	Int  int64  `json:"int,omitempty"`
	Bool bool   `json:"bool,omitempty"`

	Name string `json:"name,omitempty"`
	Op   string `json:"op,omitempty"`

	Target *Expr `json:"target,omitempty"`
	Left   *Expr `json:"left,omitempty"`
	Right  *Expr `json:"right,omitempty"`
	Cond   *Expr `json:"cond,omitempty"`
	Then   *Expr `json:"then,omitempty"`
	Else   *Expr `json:"else,omitempty"`

	Args   []*Expr       `json:"args,omitempty"`
	Elems  []*Expr       `json:"elems,omitempty"`
	Fields []ObjectField `json:"fields,omitempty"`
}

// ObjectField is one key of an object-literal expression. Order matters:
// fields serialize in declaration order.
type ObjectField struct {
	Key   string `json:"key"`
	Value *Expr  `json:"value"`
}

// StringLit builds a string literal node.
func StringLit(s string) *Expr { return &Expr{Kind: ExprString, Str: s} }

// IntLit builds an integer literal node.
func IntLit(n int64) *Expr { return &Expr{Kind: ExprInt, Int: n} }

// BoolLit builds a boolean literal node.
func BoolLit(b bool) *Expr { return &Expr{Kind: ExprBool, Bool: b} }

// Ident builds an identifier node.
func Ident(name string) *Expr { return &Expr{Kind: ExprIdent, Name: name} }

// Member builds a member-access node: target.name.
func Member(target *Expr, name string) *Expr {
	return &Expr{Kind: ExprMember, Target: target, Name: name}
}

// Binary builds a binary-operator node.
func Binary(op string, left, right *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Left: left, Right: right}
}
