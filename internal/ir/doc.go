// Package ir defines the Manifest intermediate representation.
//
// The IR is the contract between the compiler and everything downstream:
// the command runtime executes it, the route projector derives endpoints
// from it, and stores persist payloads serialized with its canonical JSON.
//
// DESIGN PRINCIPLES:
//
// Determinism: a Document is a pure function of its source text. Identical
// source yields identical IR, modulo the compile timestamp recorded in
// Provenance. Canonical JSON (RFC 8785) makes the content hash stable
// across platforms and runs.
//
// No floats: IRValue permits string/int/bool/array/object only. Floating
// point breaks cross-platform determinism.
//
// Dependency direction: all other internal packages import ir;
// ir imports nothing internal.
package ir
