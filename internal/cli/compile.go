package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/manifest/internal/compiler"
	"github.com/roach88/manifest/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileResult is the success payload: the compiled document plus any
// warnings that did not block compilation.
type CompileResult struct {
	Document *ir.Document          `json:"document"`
	Warnings []compiler.Diagnostic `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <source-file>",
		Short: "Compile a Manifest source file to IR",
		Long: `Compile a Manifest source file to its JSON intermediate representation.

The IR carries provenance (a content hash of the normalized source) and
is deterministic: identical source always compiles to an identical
document apart from the compile timestamp.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
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
			fmt.Sprintf("%s: %d problem(s)", path, len(diags)), diags)
		if formatter.Format != "json" {
			for _, line := range diagnosticLines(diags) {
				fmt.Fprintln(formatter.Writer, "  "+line)
			}
		}
		return NewExitError(ExitFailure, "compilation failed")
	}

	formatter.VerboseLog("compiled %d entities, %d commands from %s",
		len(doc.Entities), len(doc.Commands), path)

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		formatter.Error(ErrCodeWrite, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	encoded = append(encoded, '\n')

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, encoded, 0o644); err != nil {
			formatter.Error(ErrCodeWrite, fmt.Sprintf("writing %s: %v", opts.Output, err), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{Document: doc, Warnings: diags})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "compiled %s: %d entities, %d commands, %d events",
		path, len(doc.Entities), len(doc.Commands), len(doc.Events))
	if opts.Output != "" {
		fmt.Fprintf(&b, " -> %s", opts.Output)
	}
	for _, line := range diagnosticLines(diags) {
		b.WriteString("\n  " + line)
	}
	if opts.Output == "" {
		b.WriteString("\n")
		b.Write(encoded)
		return formatter.Success(strings.TrimRight(b.String(), "\n"))
	}
	return formatter.Success(b.String())
}
