package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/roach88/manifest/internal/compiler"
	"github.com/roach88/manifest/internal/ir"
)

// loadDocument reads path as either Manifest source (compiled on the
// spot) or precompiled IR JSON. IR input produces no diagnostics.
func loadDocument(path string, fromIR bool) (*ir.Document, []compiler.Diagnostic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if fromIR || strings.HasSuffix(path, ".json") {
		var doc ir.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("parsing IR %s: %w", path, err)
		}
		return &doc, nil, nil
	}

	doc, diags := compiler.Compile(string(raw))
	return doc, diags, nil
}

// diagnosticLines renders compile diagnostics for text output, one per
// line with position.
func diagnosticLines(diags []compiler.Diagnostic) []string {
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.String())
	}
	return lines
}
