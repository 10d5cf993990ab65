package compiler

import (
	"strconv"
	"strings"

	"github.com/roach88/manifest/internal/ir"
)

// parser is a recursive-descent parser over the token stream.
//
// Recovery strategy: on a syntax error the parser reports a diagnostic
// and skips forward to the next statement keyword or closing brace so
// later declarations still get parsed. One bad line never hides the
// rest of the file.
type parser struct {
	src  string
	toks []token
	i    int
	bag  *diagnosticBag
}

func newParser(src string, bag *diagnosticBag) *parser {
	lx := newLexer(src, bag)
	return &parser{src: src, toks: lx.lex(), bag: bag}
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) next() token { t := p.toks[p.i]; p.i++; return t }

func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

// expectPunct consumes the given punctuation or reports a syntax error.
func (p *parser) expectPunct(text string) bool {
	if p.cur().isPunct(text) {
		p.next()
		return true
	}
	p.bag.errorf(p.cur().pos, CodeSyntax, "expected %q, found %q", text, p.describe(p.cur()))
	return false
}

// expectName consumes an identifier in a name position. A reserved word
// here is a CodeReservedName error; it is consumed so parsing can
// continue past it.
func (p *parser) expectName(what string) (string, Position, bool) {
	t := p.cur()
	switch t.kind {
	case tokIdent:
		p.next()
		return t.text, t.pos, true
	case tokKeyword:
		p.bag.errorf(t.pos, CodeReservedName, "%q is a reserved word and cannot be used as a %s name", t.text, what)
		p.next()
		return t.text, t.pos, false
	default:
		p.bag.errorf(t.pos, CodeSyntax, "expected %s name, found %q", what, p.describe(t))
		return "", t.pos, false
	}
}

func (p *parser) describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokString:
		return "\"" + t.text + "\""
	default:
		return t.text
	}
}

// skipTo advances past tokens until one of the stop keywords, a closing
// brace, or EOF is current.
func (p *parser) skipTo(stopKeywords ...string) {
	for !p.atEOF() {
		t := p.cur()
		if t.isPunct("}") {
			return
		}
		if t.kind == tokKeyword {
			for _, kw := range stopKeywords {
				if t.text == kw {
					return
				}
			}
		}
		p.next()
	}
}

var topLevelKeywords = []string{"entity", "command", "event", "policy", "store", "module"}

// parseFile parses the whole source into an astFile.
func (p *parser) parseFile() *astFile {
	file := &astFile{}
	for !p.atEOF() {
		t := p.cur()
		switch {
		case t.isKeyword("entity"):
			if e := p.parseEntity(); e != nil {
				file.entities = append(file.entities, e)
			}
		case t.isKeyword("command"):
			if c := p.parseCommand(true); c != nil {
				file.commands = append(file.commands, c)
			}
		case t.isKeyword("event"):
			if e, ok := p.parseEvent(); ok {
				file.events = append(file.events, e)
			}
		case t.isKeyword("policy"):
			if pol, ok := p.parsePolicy(); ok {
				file.policies = append(file.policies, pol)
			}
		case t.isKeyword("store"):
			if s, ok := p.parseStore(); ok {
				file.stores = append(file.stores, s)
			}
		case t.isKeyword("module"):
			if m, entities, ok := p.parseModule(); ok {
				file.modules = append(file.modules, m)
				file.entities = append(file.entities, entities...)
			}
		default:
			p.bag.errorf(t.pos, CodeSyntax, "expected declaration, found %q", p.describe(t))
			p.next()
			p.skipTo(topLevelKeywords...)
		}
	}
	return file
}

func (p *parser) parseEntity() *astEntity {
	p.next() // entity
	name, pos, ok := p.expectName("entity")
	ent := &astEntity{name: name, pos: pos}
	if !p.expectPunct("{") {
		p.skipTo(topLevelKeywords...)
		return nil
	}

	for !p.atEOF() && !p.cur().isPunct("}") {
		t := p.cur()
		switch {
		case t.isKeyword("property"):
			if prop, ok := p.parseProperty(); ok {
				ent.properties = append(ent.properties, prop)
			}
		case t.isKeyword("computed"):
			if prop, ok := p.parseComputed(); ok {
				ent.properties = append(ent.properties, prop)
			}
		case t.isKeyword("hasMany") || t.isKeyword("hasOne") || t.isKeyword("belongsTo"):
			if prop, ok := p.parseRelation(); ok {
				ent.properties = append(ent.properties, prop)
			}
		case t.isKeyword("command"):
			if cmd := p.parseCommand(false); cmd != nil {
				ent.commands = append(ent.commands, cmd)
			}
		default:
			p.bag.errorf(t.pos, CodeSyntax, "expected property, computed, relation, or command, found %q", p.describe(t))
			p.next()
			p.skipTo("property", "computed", "hasMany", "hasOne", "belongsTo", "command")
		}
	}
	p.expectPunct("}")
	if !ok {
		return nil
	}
	return ent
}

// parseProperty parses: property [modifiers] name: type [= default]
func (p *parser) parseProperty() (astProperty, bool) {
	p.next() // property

	var modifiers []string
	for p.cur().kind == tokIdent && propertyModifiers[p.cur().text] {
		// A modifier name directly followed by ':' is the property name,
		// not a modifier ("property optional: bool" is legal).
		if p.toks[p.i+1].isPunct(":") {
			break
		}
		modifiers = append(modifiers, p.next().text)
	}

	name, pos, ok := p.expectName("property")
	prop := astProperty{name: name, pos: pos, kind: ir.PropertyField, modifiers: modifiers}
	if !p.expectPunct(":") {
		p.skipTo("property", "computed", "hasMany", "hasOne", "belongsTo", "command")
		return prop, false
	}
	typ, _, typeOK := p.expectName("type")
	prop.typ = typ

	if p.cur().isPunct("=") {
		p.next()
		prop.def, _ = p.parseExprWithSource()
	}
	return prop, ok && typeOK
}

// parseComputed parses: computed name: type = expr
func (p *parser) parseComputed() (astProperty, bool) {
	p.next() // computed
	name, pos, ok := p.expectName("computed property")
	prop := astProperty{name: name, pos: pos, kind: ir.PropertyComputed}
	if !p.expectPunct(":") {
		p.skipTo("property", "computed", "hasMany", "hasOne", "belongsTo", "command")
		return prop, false
	}
	typ, _, typeOK := p.expectName("type")
	prop.typ = typ
	if !p.expectPunct("=") {
		return prop, false
	}
	prop.expr, _ = p.parseExprWithSource()
	return prop, ok && typeOK && prop.expr != nil
}

// parseRelation parses: hasMany|hasOne|belongsTo name: Entity
func (p *parser) parseRelation() (astProperty, bool) {
	kw := p.next() // relation keyword
	name, pos, ok := p.expectName("relation")
	prop := astProperty{name: name, pos: pos, kind: ir.PropertyRelation, relation: relationName(kw.text)}
	if !p.expectPunct(":") {
		return prop, false
	}
	target, _, targetOK := p.expectName("related entity")
	prop.target = target
	return prop, ok && targetOK
}

// relationName maps source keywords to their IR spelling.
func relationName(kw string) string {
	switch kw {
	case "hasMany":
		return "has_many"
	case "hasOne":
		return "has_one"
	case "belongsTo":
		return "belongs_to"
	}
	return kw
}

// parseCommand parses a command declaration. Top-level commands use the
// qualified Entity.name form and are back-filled onto their entity
// during analysis; inline commands take the enclosing entity.
func (p *parser) parseCommand(topLevel bool) *astCommand {
	p.next() // command
	name, pos, ok := p.expectName("command")
	cmd := &astCommand{name: name, pos: pos}

	if topLevel {
		if !p.cur().isPunct(".") {
			p.bag.errorf(pos, CodeSyntax, "top-level command must be qualified as Entity.%s", name)
			ok = false
		} else {
			p.next()
			cmdName, _, nameOK := p.expectName("command")
			cmd.entity = name
			cmd.name = cmdName
			ok = ok && nameOK
		}
	}

	if !p.expectPunct("(") {
		p.skipTo(topLevelKeywords...)
		return nil
	}
	for !p.atEOF() && !p.cur().isPunct(")") {
		pname, ppos, pOK := p.expectName("parameter")
		if !p.expectPunct(":") {
			p.skipTo(topLevelKeywords...)
			return nil
		}
		ptyp, _, tOK := p.expectName("parameter type")
		if pOK && tOK {
			cmd.params = append(cmd.params, astParam{name: pname, typ: ptyp, pos: ppos})
		}
		if p.cur().isPunct(",") {
			p.next()
		}
	}
	if !p.expectPunct(")") {
		return nil
	}
	if !p.expectPunct("{") {
		p.skipTo(topLevelKeywords...)
		return nil
	}

	for !p.atEOF() && !p.cur().isPunct("}") {
		t := p.cur()
		switch {
		case t.isKeyword("guard") || t.isKeyword("when"):
			p.next()
			expr, source := p.parseExprWithSource()
			g := astGuard{expr: expr, source: source, pos: t.pos}
			if p.cur().kind == tokString {
				g.message = p.next().text
			}
			if expr != nil {
				cmd.guards = append(cmd.guards, g)
			}
		case t.isKeyword("mutate"):
			p.next()
			if a, aOK := p.parseMutateTail(); aOK {
				cmd.actions = append(cmd.actions, a)
			}
		case t.isKeyword("emit"):
			p.next()
			ename, epos, eOK := p.expectName("event")
			e := astEmit{event: ename, pos: epos}
			if p.cur().isPunct("{") {
				obj, _ := p.parseExprWithSource()
				if obj != nil && obj.Kind == ir.ExprObject {
					e.payload = obj.Fields
				}
			}
			if eOK {
				cmd.emits = append(cmd.emits, e)
			}
		default:
			p.bag.errorf(t.pos, CodeSyntax, "expected guard, when, mutate, or emit, found %q", p.describe(t))
			p.next()
			p.skipTo("guard", "when", "mutate", "emit")
		}
	}
	p.expectPunct("}")
	if !ok {
		return nil
	}
	return cmd
}

// parseMutateTail parses the remainder of: mutate [self.]target = expr
func (p *parser) parseMutateTail() (astAction, bool) {
	if p.cur().isKeyword("self") {
		p.next()
		if !p.expectPunct(".") {
			return astAction{}, false
		}
	}
	target, tpos, ok := p.expectName("property")
	if !p.expectPunct("=") {
		p.skipTo("guard", "when", "mutate", "emit")
		return astAction{}, false
	}
	expr, source := p.parseExprWithSource()
	a := astAction{target: target, expr: expr, source: source, pos: tpos}
	return a, ok && expr != nil
}

// parseEvent parses: event Name [: "channel"]
func (p *parser) parseEvent() (astEvent, bool) {
	p.next() // event
	name, pos, ok := p.expectName("event")
	e := astEvent{name: name, pos: pos}
	if p.cur().isPunct(":") {
		p.next()
		if p.cur().kind == tokString {
			e.channel = p.next().text
		} else {
			p.bag.errorf(p.cur().pos, CodeSyntax, "expected channel string after ':'")
			ok = false
		}
	}
	return e, ok
}

// parsePolicy parses: policy name [action]: expr ["message"]
func (p *parser) parsePolicy() (astPolicy, bool) {
	p.next() // policy
	name, pos, ok := p.expectName("policy")
	pol := astPolicy{name: name, pos: pos}
	if p.cur().kind == tokIdent {
		pol.action = p.next().text
	}
	if !p.expectPunct(":") {
		p.skipTo(topLevelKeywords...)
		return pol, false
	}
	pol.expr, _ = p.parseExprWithSource()
	if p.cur().kind == tokString {
		pol.message = p.next().text
	}
	return pol, ok && pol.expr != nil
}

// parseStore parses: store Entity in backend
func (p *parser) parseStore() (astStore, bool) {
	p.next() // store
	entity, pos, ok := p.expectName("entity")
	s := astStore{entity: entity, pos: pos}
	if !p.cur().isKeyword("in") {
		p.bag.errorf(p.cur().pos, CodeSyntax, "expected 'in' after store entity")
		p.skipTo(topLevelKeywords...)
		return s, false
	}
	p.next()
	backend, _, bOK := p.expectName("store backend")
	s.backend = backend
	return s, ok && bOK
}

// parseModule parses: module Name { entity... }. Entities declared in
// the block are returned for global registration; the module records
// their names.
func (p *parser) parseModule() (astModule, []*astEntity, bool) {
	p.next() // module
	name, pos, ok := p.expectName("module")
	m := astModule{name: name, pos: pos}
	if !p.expectPunct("{") {
		p.skipTo(topLevelKeywords...)
		return m, nil, false
	}
	var entities []*astEntity
	for !p.atEOF() && !p.cur().isPunct("}") {
		if p.cur().isKeyword("entity") {
			if e := p.parseEntity(); e != nil {
				entities = append(entities, e)
				m.entities = append(m.entities, e.name)
			}
			continue
		}
		p.bag.errorf(p.cur().pos, CodeSyntax, "only entity declarations are allowed inside a module")
		p.next()
		p.skipTo("entity")
	}
	p.expectPunct("}")
	return m, entities, ok
}

// parseExprWithSource parses an expression and returns it together with
// the exact source slice it was parsed from.
func (p *parser) parseExprWithSource() (*ir.Expr, string) {
	start := p.cur().off
	expr := p.parseTernary()
	end := start
	if p.i > 0 {
		end = p.toks[p.i-1].end
	}
	if end < start {
		end = start
	}
	return expr, p.src[start:end]
}

func (p *parser) parseTernary() *ir.Expr {
	cond := p.parseOr()
	if cond == nil || !p.cur().isPunct("?") {
		return cond
	}
	p.next()
	thenE := p.parseTernary()
	if !p.expectPunct(":") {
		return nil
	}
	elseE := p.parseTernary()
	if thenE == nil || elseE == nil {
		return nil
	}
	return &ir.Expr{Kind: ir.ExprTernary, Cond: cond, Then: thenE, Else: elseE}
}

func (p *parser) parseOr() *ir.Expr {
	left := p.parseAnd()
	for left != nil && p.cur().isKeyword("or") {
		p.next()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = ir.Binary("or", left, right)
	}
	return left
}

func (p *parser) parseAnd() *ir.Expr {
	left := p.parseEquality()
	for left != nil && p.cur().isKeyword("and") {
		p.next()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = ir.Binary("and", left, right)
	}
	return left
}

func (p *parser) parseEquality() *ir.Expr {
	left := p.parseComparison()
	for left != nil {
		var op string
		switch {
		case p.cur().isPunct("=="):
			op = "=="
		case p.cur().isPunct("!="):
			op = "!="
		case p.cur().isKeyword("is"):
			op = "=="
		default:
			return left
		}
		p.next()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = ir.Binary(op, left, right)
	}
	return left
}

func (p *parser) parseComparison() *ir.Expr {
	left := p.parseAdditive()
	for left != nil {
		var op string
		switch {
		case p.cur().isPunct("<"):
			op = "<"
		case p.cur().isPunct("<="):
			op = "<="
		case p.cur().isPunct(">"):
			op = ">"
		case p.cur().isPunct(">="):
			op = ">="
		case p.cur().isKeyword("in"):
			op = "in"
		case p.cur().isKeyword("contains"):
			op = "contains"
		default:
			return left
		}
		p.next()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = ir.Binary(op, left, right)
	}
	return left
}

func (p *parser) parseAdditive() *ir.Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.cur().isPunct("+") || p.cur().isPunct("-")) {
		op := p.next().text
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = ir.Binary(op, left, right)
	}
	return left
}

func (p *parser) parseMultiplicative() *ir.Expr {
	left := p.parseUnary()
	for left != nil && (p.cur().isPunct("*") || p.cur().isPunct("/")) {
		op := p.next().text
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = ir.Binary(op, left, right)
	}
	return left
}

func (p *parser) parseUnary() *ir.Expr {
	t := p.cur()
	if t.isPunct("!") || t.isKeyword("not") || t.isPunct("-") {
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		op := t.text
		if op == "not" {
			op = "!"
		}
		return &ir.Expr{Kind: ir.ExprUnary, Op: op, Target: operand}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() *ir.Expr {
	expr := p.parsePrimary()
	for expr != nil {
		switch {
		case p.cur().isPunct("."):
			p.next()
			t := p.cur()
			if t.kind != tokIdent && t.kind != tokKeyword {
				p.bag.errorf(t.pos, CodeSyntax, "expected member name after '.', found %q", p.describe(t))
				return nil
			}
			p.next()
			expr = ir.Member(expr, t.text)
		case p.cur().isPunct("(") && expr.Kind == ir.ExprIdent:
			p.next()
			call := &ir.Expr{Kind: ir.ExprCall, Name: expr.Name}
			for !p.atEOF() && !p.cur().isPunct(")") {
				arg := p.parseTernary()
				if arg == nil {
					return nil
				}
				call.Args = append(call.Args, arg)
				if p.cur().isPunct(",") {
					p.next()
				}
			}
			if !p.expectPunct(")") {
				return nil
			}
			expr = call
		default:
			return expr
		}
	}
	return expr
}

func (p *parser) parsePrimary() *ir.Expr {
	t := p.cur()
	switch {
	case t.kind == tokInt:
		p.next()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			p.bag.errorf(t.pos, CodeSyntax, "integer out of range: %s", t.text)
			return nil
		}
		return ir.IntLit(n)

	case t.kind == tokString:
		p.next()
		return p.stringExpr(t.text, t.pos)

	case t.isKeyword("true"):
		p.next()
		return ir.BoolLit(true)

	case t.isKeyword("false"):
		p.next()
		return ir.BoolLit(false)

	case t.isKeyword("null"):
		p.bag.errorf(t.pos, CodeSyntax, "null is not allowed in expressions")
		p.next()
		return nil

	case t.isKeyword("self") || t.isKeyword("params") || t.isKeyword("user"):
		p.next()
		return ir.Ident(t.text)

	case t.kind == tokIdent:
		p.next()
		return ir.Ident(t.text)

	case t.isPunct("("):
		p.next()
		inner := p.parseTernary()
		if !p.expectPunct(")") {
			return nil
		}
		return inner

	case t.isPunct("["):
		p.next()
		arr := &ir.Expr{Kind: ir.ExprArray}
		for !p.atEOF() && !p.cur().isPunct("]") {
			elem := p.parseTernary()
			if elem == nil {
				return nil
			}
			arr.Elems = append(arr.Elems, elem)
			if p.cur().isPunct(",") {
				p.next()
			}
		}
		if !p.expectPunct("]") {
			return nil
		}
		return arr

	case t.isPunct("{"):
		p.next()
		obj := &ir.Expr{Kind: ir.ExprObject}
		for !p.atEOF() && !p.cur().isPunct("}") {
			key := p.cur()
			if key.kind != tokIdent && key.kind != tokString && key.kind != tokKeyword {
				p.bag.errorf(key.pos, CodeSyntax, "expected object key, found %q", p.describe(key))
				return nil
			}
			p.next()
			if !p.expectPunct(":") {
				return nil
			}
			val := p.parseTernary()
			if val == nil {
				return nil
			}
			obj.Fields = append(obj.Fields, ir.ObjectField{Key: key.text, Value: val})
			if p.cur().isPunct(",") {
				p.next()
			}
		}
		if !p.expectPunct("}") {
			return nil
		}
		return obj

	default:
		p.bag.errorf(t.pos, CodeSyntax, "expected expression, found %q", p.describe(t))
		return nil
	}
}

// stringExpr turns a string literal into an expression. Literals with
// ${...} segments become an interpolation node whose parts evaluate and
// stringify in order; plain literals stay plain.
func (p *parser) stringExpr(text string, pos Position) *ir.Expr {
	if !strings.Contains(text, "${") {
		return ir.StringLit(text)
	}

	interp := &ir.Expr{Kind: ir.ExprInterp}
	rest := text
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			if rest != "" {
				interp.Elems = append(interp.Elems, ir.StringLit(rest))
			}
			break
		}
		if start > 0 {
			interp.Elems = append(interp.Elems, ir.StringLit(rest[:start]))
		}
		rest = rest[start+2:]

		depth := 1
		end := -1
		for i, r := range rest {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			p.bag.errorf(pos, CodeSyntax, "unterminated ${ in string literal")
			return nil
		}

		inner := rest[:end]
		rest = rest[end+1:]
		sub := p.parseEmbedded(inner, pos)
		if sub == nil {
			return nil
		}
		interp.Elems = append(interp.Elems, sub)
	}
	return interp
}

// parseEmbedded parses one ${...} segment with a throwaway diagnostic
// bag; segment-internal positions are meaningless to the caller, so a
// bad segment reports a single error at the literal's position.
func (p *parser) parseEmbedded(inner string, pos Position) *ir.Expr {
	scratch := &diagnosticBag{}
	sub := newParser(inner, scratch)
	expr := sub.parseTernary()
	if expr == nil || !sub.atEOF() || HasErrors(scratch.diags) {
		p.bag.errorf(pos, CodeSyntax, "invalid interpolation expression %q", inner)
		return nil
	}
	return expr
}
