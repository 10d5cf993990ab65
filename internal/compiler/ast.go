package compiler

import "github.com/roach88/manifest/internal/ir"

// The AST mirrors the IR closely but keeps positions for semantic
// error reporting. Expressions lower straight to ir.Expr; statement
// positions are precise enough to locate any identifier error inside
// them.

type astFile struct {
	entities []*astEntity
	commands []*astCommand // top-level Entity.name commands
	events   []astEvent
	policies []astPolicy
	stores   []astStore
	modules  []astModule
}

type astEntity struct {
	name       string
	pos        Position
	properties []astProperty
	commands   []*astCommand
}

type astProperty struct {
	name      string
	pos       Position
	kind      ir.PropertyKind
	typ       string
	modifiers []string
	def       *ir.Expr
	expr      *ir.Expr
	relation  string
	target    string
}

type astCommand struct {
	entity  string // empty for inline commands
	name    string
	pos     Position
	params  []astParam
	guards  []astGuard
	actions []astAction
	emits   []astEmit
}

type astParam struct {
	name string
	typ  string
	pos  Position
}

type astGuard struct {
	expr    *ir.Expr
	source  string
	message string
	pos     Position
}

type astAction struct {
	target string
	expr   *ir.Expr
	source string
	pos    Position
}

type astEmit struct {
	event   string
	payload []ir.ObjectField
	pos     Position
}

type astEvent struct {
	name    string
	channel string
	pos     Position
}

type astPolicy struct {
	name    string
	action  string
	expr    *ir.Expr
	message string
	pos     Position
}

type astStore struct {
	entity  string
	backend string
	pos     Position
}

type astModule struct {
	name     string
	entities []string
	pos      Position
}
