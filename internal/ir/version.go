package ir

// Version constants for the IR schema and compiler.
const (
	// SchemaVersion is the IR document schema version.
	SchemaVersion = "1"

	// CompilerVersion is the Manifest compiler version recorded in
	// Provenance. Bump on any change that alters compiled output.
	CompilerVersion = "0.1.0"
)
