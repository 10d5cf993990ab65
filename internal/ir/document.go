package ir

// Document is the root of a compiled Manifest program.
//
// Every slice is in declaration order as written in the source. The
// compiler never reorders; the route projector and other consumers sort
// on their own when they need a canonical order.
type Document struct {
	Version    string      `json:"version"`
	Entities   []Entity    `json:"entities"`
	Commands   []Command   `json:"commands"`
	Stores     []StoreDecl `json:"stores,omitempty"`
	Events     []EventDecl `json:"events,omitempty"`
	Policies   []Policy    `json:"policies,omitempty"`
	Modules    []Module    `json:"modules,omitempty"`
	Provenance Provenance  `json:"provenance"`
}

// Provenance records how a Document came to be. ContentHash is a stable
// hash of normalized source; CompiledAt is the only field excluded from
// determinism guarantees.
type Provenance struct {
	ContentHash     string `json:"content_hash"`
	CompilerVersion string `json:"compiler_version"`
	SchemaVersion   string `json:"schema_version"`
	CompiledAt      string `json:"compiled_at"` // RFC 3339, UTC
}

// Entity describes a declared entity: its typed properties and the names
// of commands that operate on it (inline or back-filled top-level).
type Entity struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
	Commands   []string   `json:"commands,omitempty"`
}

// Property returns the named property, or nil.
func (e *Entity) Property(name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// PropertyKind discriminates the three property flavors.
type PropertyKind string

const (
	PropertyField    PropertyKind = "field"
	PropertyComputed PropertyKind = "computed"
	PropertyRelation PropertyKind = "relation"
)

// Property is one declared entity property.
//
// Field properties carry Type, Modifiers, and an optional Default.
// Computed properties carry Type and Expr.
// Relation properties carry Relation (has_many|has_one|belongs_to) and
// Target, the related entity name.
type Property struct {
	Name      string       `json:"name"`
	Kind      PropertyKind `json:"kind"`
	Type      string       `json:"type,omitempty"`
	Modifiers []string     `json:"modifiers,omitempty"`
	Default   *Expr        `json:"default,omitempty"`
	Expr      *Expr        `json:"expr,omitempty"`
	Relation  string       `json:"relation,omitempty"`
	Target    string       `json:"target,omitempty"`
}

// HasModifier reports whether the property carries the given modifier.
func (p *Property) HasModifier(name string) bool {
	for _, m := range p.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}

// Command is a named operation on an entity: ordered guards, ordered
// actions, and event templates emitted on success.
type Command struct {
	Name    string          `json:"name"`
	Entity  string          `json:"entity"`
	Params  []Param         `json:"params,omitempty"`
	Guards  []Guard         `json:"guards,omitempty"`
	Actions []Action        `json:"actions,omitempty"`
	Emits   []EventTemplate `json:"emits,omitempty"`
}

// Param is a declared command parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Guard is a boolean precondition. Source preserves the expression text
// exactly as written, for failure reporting.
type Guard struct {
	Source  string `json:"source"`
	Expr    *Expr  `json:"expr"`
	Message string `json:"message,omitempty"`
}

// Action mutates one instance property: self.<Target> = <Expr>.
type Action struct {
	Target string `json:"target"`
	Expr   *Expr  `json:"expr"`
	Source string `json:"source"`
}

// EventTemplate declares an event a command emits on success. Payload
// fields are expressions interpolated with instance and parameter values
// at execution time; declaration order is preserved.
type EventTemplate struct {
	Event   string        `json:"event"`
	Payload []ObjectField `json:"payload,omitempty"`
}

// StoreDecl binds an entity to a persistence backend.
type StoreDecl struct {
	Entity  string `json:"entity"`
	Backend string `json:"backend"`
}

// EventDecl declares an event name and its delivery channel.
type EventDecl struct {
	Name    string `json:"name"`
	Channel string `json:"channel,omitempty"`
}

// Policy is a named authorization rule over an optional action.
type Policy struct {
	Name    string `json:"name"`
	Action  string `json:"action,omitempty"`
	Expr    *Expr  `json:"expr"`
	Message string `json:"message,omitempty"`
}

// Module groups entity declarations under a namespace.
type Module struct {
	Name     string   `json:"name"`
	Entities []string `json:"entities,omitempty"`
}

// Entity returns the named entity, or nil.
func (d *Document) Entity(name string) *Entity {
	for i := range d.Entities {
		if d.Entities[i].Name == name {
			return &d.Entities[i]
		}
	}
	return nil
}

// CommandNamed returns the named command scoped to an entity, or nil.
func (d *Document) CommandNamed(entity, name string) *Command {
	for i := range d.Commands {
		if d.Commands[i].Entity == entity && d.Commands[i].Name == name {
			return &d.Commands[i]
		}
	}
	return nil
}

// EventNamed returns the declared event, or nil when the event was never
// declared (emitting undeclared events is legal; they default to no
// channel).
func (d *Document) EventNamed(name string) *EventDecl {
	for i := range d.Events {
		if d.Events[i].Name == name {
			return &d.Events[i]
		}
	}
	return nil
}
