package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/manifest/internal/compiler"
)

// ValidateResult is the success payload of the validate command.
type ValidateResult struct {
	Valid       bool                  `json:"valid"`
	Entities    int                   `json:"entities"`
	Commands    int                   `json:"commands"`
	ContentHash string                `json:"content_hash,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <source-file>",
		Short:         "Validate a Manifest source file without emitting IR",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		formatter.Error(ErrCodeRead, fmt.Sprintf("reading %s: %v", path, err), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	doc, diags := compiler.Compile(string(raw))
	if doc == nil {
		formatter.Error(ErrCodeCompile,
			fmt.Sprintf("%s is invalid: %d problem(s)", path, len(diags)), diags)
		if formatter.Format != "json" {
			for _, line := range diagnosticLines(diags) {
				fmt.Fprintln(formatter.Writer, "  "+line)
			}
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	result := ValidateResult{
		Valid:       true,
		Entities:    len(doc.Entities),
		Commands:    len(doc.Commands),
		ContentHash: doc.Provenance.ContentHash,
		Diagnostics: diags,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	msg := fmt.Sprintf("%s is valid: %d entities, %d commands", path, result.Entities, result.Commands)
	for _, line := range diagnosticLines(diags) {
		msg += "\n  " + line
	}
	return formatter.Success(msg)
}
