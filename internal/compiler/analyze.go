package compiler

import (
	"github.com/roach88/manifest/internal/ir"
)

// builtinFuncs are the only callable functions in expressions.
var builtinFuncs = map[string]bool{
	"now":             true,
	"uuid":            true,
	"validTransition": true,
	"canClaim":        true,
	"canRelease":      true,
}

// analyzer resolves and validates a parsed file, lowering it to an IR
// document. Analysis runs even when the parse produced errors so that
// as many findings as possible surface in one compile.
type analyzer struct {
	file *astFile
	bag  *diagnosticBag

	entities map[string]*astEntity
}

func analyze(file *astFile, bag *diagnosticBag) *ir.Document {
	a := &analyzer{file: file, bag: bag, entities: make(map[string]*astEntity)}

	a.registerEntities()
	a.checkRelations()
	a.checkStores()

	doc := &ir.Document{Version: ir.SchemaVersion}

	for _, e := range file.entities {
		if a.entities[e.name] != e {
			continue // duplicate, already reported
		}
		doc.Entities = append(doc.Entities, a.lowerEntity(e))
	}

	a.lowerCommands(doc)

	for _, ev := range file.events {
		doc.Events = append(doc.Events, ir.EventDecl{Name: ev.name, Channel: ev.channel})
	}
	for _, pol := range file.policies {
		doc.Policies = append(doc.Policies, ir.Policy{
			Name: pol.name, Action: pol.action, Expr: pol.expr, Message: pol.message,
		})
	}
	for _, s := range file.stores {
		doc.Stores = append(doc.Stores, ir.StoreDecl{Entity: s.entity, Backend: s.backend})
	}
	for _, m := range file.modules {
		doc.Modules = append(doc.Modules, ir.Module{Name: m.name, Entities: m.entities})
	}

	a.checkEmitDeclarations(doc)

	return doc
}

func (a *analyzer) registerEntities() {
	for _, e := range a.file.entities {
		if _, exists := a.entities[e.name]; exists {
			a.bag.errorf(e.pos, CodeDuplicateEntity, "entity %q declared more than once", e.name)
			continue
		}
		a.entities[e.name] = e
	}
}

func (a *analyzer) checkRelations() {
	for _, e := range a.file.entities {
		for _, prop := range e.properties {
			if prop.kind == ir.PropertyRelation {
				if _, ok := a.entities[prop.target]; !ok {
					a.bag.errorf(prop.pos, CodeUnknownEntity,
						"relation %q references unknown entity %q", prop.name, prop.target)
				}
			}
		}
	}
}

func (a *analyzer) checkStores() {
	for _, s := range a.file.stores {
		if _, ok := a.entities[s.entity]; !ok {
			a.bag.errorf(s.pos, CodeUnknownEntity, "store declaration references unknown entity %q", s.entity)
		}
	}
}

func (a *analyzer) lowerEntity(e *astEntity) ir.Entity {
	ent := ir.Entity{Name: e.name}
	seen := make(map[string]bool)
	for _, prop := range e.properties {
		if seen[prop.name] {
			a.bag.errorf(prop.pos, CodeDuplicateProperty,
				"property %q declared more than once on entity %q", prop.name, e.name)
			continue
		}
		seen[prop.name] = true

		p := ir.Property{
			Name:      prop.name,
			Kind:      prop.kind,
			Type:      prop.typ,
			Modifiers: prop.modifiers,
			Default:   prop.def,
			Expr:      prop.expr,
			Relation:  prop.relation,
			Target:    prop.target,
		}
		ent.Properties = append(ent.Properties, p)

		if prop.kind == ir.PropertyComputed && prop.expr != nil {
			a.checkExpr(prop.expr, e, nil, prop.pos)
		}
		if prop.def != nil {
			a.checkExpr(prop.def, e, nil, prop.pos)
		}
	}
	return ent
}

// lowerCommands lowers inline commands (in entity order) and then
// top-level commands, back-filling each top-level command's entity.
func (a *analyzer) lowerCommands(doc *ir.Document) {
	type scoped struct {
		cmd    *astCommand
		entity *astEntity
	}
	var all []scoped

	for _, e := range a.file.entities {
		if a.entities[e.name] != e {
			continue
		}
		for _, cmd := range e.commands {
			all = append(all, scoped{cmd: cmd, entity: e})
		}
	}
	for _, cmd := range a.file.commands {
		ent, ok := a.entities[cmd.entity]
		if !ok {
			a.bag.errorf(cmd.pos, CodeUnknownEntity,
				"command %q declared for unknown entity %q", cmd.name, cmd.entity)
			continue
		}
		all = append(all, scoped{cmd: cmd, entity: ent})
	}

	seen := make(map[string]map[string]bool)
	for _, sc := range all {
		entName := sc.entity.name
		if seen[entName] == nil {
			seen[entName] = make(map[string]bool)
		}
		if seen[entName][sc.cmd.name] {
			a.bag.errorf(sc.cmd.pos, CodeDuplicateCommand,
				"command %q declared more than once on entity %q", sc.cmd.name, entName)
			continue
		}
		seen[entName][sc.cmd.name] = true

		doc.Commands = append(doc.Commands, a.lowerCommand(sc.cmd, sc.entity))
		for i := range doc.Entities {
			if doc.Entities[i].Name == entName {
				doc.Entities[i].Commands = append(doc.Entities[i].Commands, sc.cmd.name)
			}
		}
	}
}

func (a *analyzer) lowerCommand(cmd *astCommand, ent *astEntity) ir.Command {
	out := ir.Command{Name: cmd.name, Entity: ent.name}

	params := make(map[string]bool, len(cmd.params))
	seenParams := make(map[string]bool, len(cmd.params))
	for _, param := range cmd.params {
		if seenParams[param.name] {
			a.bag.errorf(param.pos, CodeDuplicateProperty,
				"parameter %q declared more than once on command %q", param.name, cmd.name)
			continue
		}
		seenParams[param.name] = true
		params[param.name] = true
		out.Params = append(out.Params, ir.Param{Name: param.name, Type: param.typ})
	}

	for _, g := range cmd.guards {
		a.checkExpr(g.expr, ent, params, g.pos)
		out.Guards = append(out.Guards, ir.Guard{Source: g.source, Expr: g.expr, Message: g.message})
	}
	for _, act := range cmd.actions {
		prop := findProperty(ent, act.target)
		switch {
		case prop == nil:
			a.bag.errorf(act.pos, CodeUnknownProperty,
				"mutate target %q is not a property of entity %q", act.target, ent.name)
		case prop.kind != ir.PropertyField:
			a.bag.errorf(act.pos, CodeUnknownProperty,
				"mutate target %q on entity %q is %s, only plain fields can be mutated",
				act.target, ent.name, prop.kind)
		}
		a.checkExpr(act.expr, ent, params, act.pos)
		out.Actions = append(out.Actions, ir.Action{Target: act.target, Expr: act.expr, Source: act.source})
	}
	for _, e := range cmd.emits {
		for _, f := range e.payload {
			a.checkExpr(f.Value, ent, params, e.pos)
		}
		out.Emits = append(out.Emits, ir.EventTemplate{Event: e.event, Payload: e.payload})
	}

	return out
}

func findProperty(ent *astEntity, name string) *astProperty {
	for i := range ent.properties {
		if ent.properties[i].name == name {
			return &ent.properties[i]
		}
	}
	return nil
}

// checkExpr validates identifier references in an expression.
//
// Resolution rules: self.<p> must name an entity property; params.<p>
// and bare identifiers must name a declared parameter (params may be
// nil in contexts without parameters, e.g. computed properties); user.*
// is opaque to the compiler; calls must be builtins.
func (a *analyzer) checkExpr(expr *ir.Expr, ent *astEntity, params map[string]bool, pos Position) {
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ir.ExprString, ir.ExprInt, ir.ExprBool:
		return

	case ir.ExprIdent:
		switch expr.Name {
		case "self", "params", "user":
			return
		}
		if params == nil || !params[expr.Name] {
			a.bag.errorf(pos, CodeUnknownParam,
				"%q is not a declared parameter", expr.Name)
		}

	case ir.ExprMember:
		if expr.Target != nil && expr.Target.Kind == ir.ExprIdent {
			switch expr.Target.Name {
			case "self":
				if findProperty(ent, expr.Name) == nil {
					a.bag.errorf(pos, CodeUnknownProperty,
						"self.%s is not a property of entity %q", expr.Name, ent.name)
				}
				return
			case "params":
				if params == nil || !params[expr.Name] {
					a.bag.errorf(pos, CodeUnknownParam,
						"params.%s is not a declared parameter", expr.Name)
				}
				return
			case "user":
				return
			}
		}
		a.checkExpr(expr.Target, ent, params, pos)

	case ir.ExprUnary:
		a.checkExpr(expr.Target, ent, params, pos)

	case ir.ExprBinary:
		a.checkExpr(expr.Left, ent, params, pos)
		a.checkExpr(expr.Right, ent, params, pos)

	case ir.ExprTernary:
		a.checkExpr(expr.Cond, ent, params, pos)
		a.checkExpr(expr.Then, ent, params, pos)
		a.checkExpr(expr.Else, ent, params, pos)

	case ir.ExprCall:
		if !builtinFuncs[expr.Name] {
			a.bag.errorf(pos, CodeUnknownFunction, "unknown function %q", expr.Name)
		}
		for _, arg := range expr.Args {
			a.checkExpr(arg, ent, params, pos)
		}

	case ir.ExprArray, ir.ExprInterp:
		for _, elem := range expr.Elems {
			a.checkExpr(elem, ent, params, pos)
		}

	case ir.ExprObject:
		for _, f := range expr.Fields {
			a.checkExpr(f.Value, ent, params, pos)
		}
	}
}

// checkEmitDeclarations warns about events emitted but never declared.
// Undeclared events are legal; they default to no channel.
func (a *analyzer) checkEmitDeclarations(doc *ir.Document) {
	declared := make(map[string]bool, len(doc.Events))
	for _, e := range doc.Events {
		declared[e.Name] = true
	}
	for _, cmd := range doc.Commands {
		for _, emit := range cmd.Emits {
			if !declared[emit.Event] {
				a.bag.warnf(Position{}, CodeUndeclaredEvent,
					"command %s.%s emits undeclared event %q", cmd.Entity, cmd.Name, emit.Event)
			}
		}
	}
}
