package compiler

import (
	"time"

	"github.com/roach88/manifest/internal/ir"
)

// Option configures a compile call.
type Option func(*config)

type config struct {
	compiledAt time.Time
}

// WithCompiledAt pins the provenance timestamp. Used by tests and by
// any caller that needs byte-identical output across runs; the default
// is the current wall clock.
func WithCompiledAt(t time.Time) Option {
	return func(c *config) {
		c.compiledAt = t
	}
}

// Compile parses and analyzes Manifest source.
//
// Returns (nil, diagnostics) when any error-severity diagnostic was
// produced; returns (doc, diagnostics) otherwise, where diagnostics may
// still contain warnings. Compile never panics on malformed source.
//
// Determinism: identical source yields an identical document except for
// provenance.compiled_at. The provenance content hash covers normalized
// source, so whitespace-insignificant edits do not change it.
func Compile(source string, opts ...Option) (*ir.Document, []Diagnostic) {
	cfg := config{compiledAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(&cfg)
	}

	bag := &diagnosticBag{}

	p := newParser(source, bag)
	file := p.parseFile()

	doc := analyze(file, bag)

	if HasErrors(bag.diags) {
		return nil, bag.diags
	}

	doc.Provenance = ir.Provenance{
		ContentHash:     ir.ContentHash(source),
		CompilerVersion: ir.CompilerVersion,
		SchemaVersion:   ir.SchemaVersion,
		CompiledAt:      cfg.compiledAt.UTC().Format(time.RFC3339),
	}

	return doc, bag.diags
}
