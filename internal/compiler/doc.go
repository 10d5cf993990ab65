// Package compiler turns Manifest DSL source into IR documents.
//
// The pipeline is lex -> parse -> analyze. Each stage accumulates
// diagnostics instead of stopping at the first problem; the parser
// recovers at statement boundaries so one bad property does not hide
// errors further down the file.
//
// Compile never panics on malformed source. Error-severity diagnostics
// mean no document is produced; warnings accompany a valid document.
package compiler
