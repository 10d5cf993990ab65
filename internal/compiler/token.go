package compiler

// tokenKind discriminates lexer output.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokString
	tokInt
	tokPunct // single or double rune operators and delimiters
)

// token is one lexeme with its source position. off/end are byte
// offsets into the source, kept so the parser can slice the original
// text of an expression for failure reporting.
type token struct {
	kind tokenKind
	text string
	pos  Position
	off  int
	end  int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) isKeyword(name string) bool { return t.is(tokKeyword, name) }

func (t token) isPunct(text string) bool { return t.is(tokPunct, text) }

// keywords are reserved words. They cannot be used as entity, property,
// command, or parameter names; the parser reports CodeReservedName and
// recovers when one appears in a name position.
var keywords = map[string]bool{
	"entity":    true,
	"property":  true,
	"computed":  true,
	"command":   true,
	"guard":     true,
	"when":      true,
	"mutate":    true,
	"emit":      true,
	"event":     true,
	"policy":    true,
	"store":     true,
	"module":    true,
	"in":        true,
	"self":      true,
	"params":    true,
	"user":      true,
	"hasMany":   true,
	"hasOne":    true,
	"belongsTo": true,
	"and":       true,
	"or":        true,
	"not":       true,
	"contains":  true,
	"is":        true,
	"true":      true,
	"false":     true,
	"null":      true,
}

// propertyModifiers are contextual: ordinary identifiers everywhere
// except immediately after the property keyword.
var propertyModifiers = map[string]bool{
	"required": true,
	"unique":   true,
	"indexed":  true,
	"private":  true,
	"readonly": true,
	"optional": true,
}
