// Package routes projects a compiled document onto a transport
// surface: a machine-readable route manifest plus typed path-builder
// source.
//
// Generation is pure and deterministic. For a fixed document and fixed
// options (including an explicit GeneratedAt) the output is
// byte-identical across runs: entities sort by name, command routes by
// entity then command, and manual routes keep declaration order.
// Problems are reported as diagnostics alongside whatever artifacts
// could still be produced; Generate never fails.
package routes
