// Package engine executes compiled Manifest documents against a
// persistence backend.
//
// An Engine is bound to one execution context (the acting user and
// tenant) and one store provider. Commands run in three phases: guards
// evaluate in declaration order and short-circuit on the first failure
// with no mutation of any kind, actions apply to a cloned copy of the
// instance data, and emitted events become transactional outbox rows
// written atomically with the mutation whenever the backing store
// supports it.
//
// A command has exactly one of three outcomes: success, a domain-level
// guard or policy failure carried inside CommandResult, or an
// infrastructure error returned as error. Domain failures are never
// folded into errors and vice versa.
package engine
