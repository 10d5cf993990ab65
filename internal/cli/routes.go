package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/manifest/internal/routes"
)

// RoutesOptions holds flags for the routes command.
type RoutesOptions struct {
	*RootOptions
	FromIR      bool
	Surface     string
	BasePath    string
	GeneratedAt string
	Auth        bool
	Tenant      bool
	ManualFile  string
	OutDir      string
}

// RoutesResult is the success payload of the routes command.
type RoutesResult struct {
	Artifacts   []string            `json:"artifacts"`
	Diagnostics []routes.Diagnostic `json:"diagnostics,omitempty"`
}

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RoutesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "routes <source-file>",
		Short: "Generate route manifest and path builders from a Manifest source",
		Long: `Generate the canonical route projection: a JSON route manifest and a
TypeScript path-builder source file.

Input is Manifest source (compiled on the fly) or, with --from-ir or a
.json extension, precompiled IR. Manual routes are merged in from a
YAML file. Output is deterministic for a fixed --generated-at.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FromIR, "from-ir", false, "treat input as precompiled IR JSON")
	cmd.Flags().StringVar(&opts.Surface, "surface", routes.SurfaceTypeScript, "projection surface")
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "/api", "base path for derived routes")
	cmd.Flags().StringVar(&opts.GeneratedAt, "generated-at", "", "RFC 3339 generation timestamp (default: now)")
	cmd.Flags().BoolVar(&opts.Auth, "auth", true, "default auth expectation flag")
	cmd.Flags().BoolVar(&opts.Tenant, "tenant", true, "default tenant expectation flag")
	cmd.Flags().StringVar(&opts.ManualFile, "manual", "", "YAML file of manual routes")
	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", "directory to write artifacts into")

	return cmd
}

func runRoutes(opts *RoutesOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, diags, err := loadDocument(path, opts.FromIR)
	if err != nil {
		formatter.Error(ErrCodeRead, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	if doc == nil {
		formatter.Error(ErrCodeCompile,
			fmt.Sprintf("%s: %d problem(s)", path, len(diags)), diags)
		return NewExitError(ExitFailure, "compilation failed")
	}

	genOpts := routes.Options{
		Surface:  opts.Surface,
		BasePath: opts.BasePath,
		Auth:     &opts.Auth,
		Tenant:   &opts.Tenant,
	}
	if opts.GeneratedAt != "" {
		at, err := time.Parse(time.RFC3339, opts.GeneratedAt)
		if err != nil {
			formatter.Error(ErrCodeBadInput, fmt.Sprintf("invalid --generated-at: %v", err), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		genOpts.GeneratedAt = at
	}

	if opts.ManualFile != "" {
		manual, err := loadManualRoutes(opts.ManualFile)
		if err != nil {
			formatter.Error(ErrCodeRead, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		genOpts.Manual = manual
		formatter.VerboseLog("merged %d manual route(s) from %s", len(manual), opts.ManualFile)
	}

	artifacts, genDiags := routes.Generate(doc, genOpts)
	for _, d := range genDiags {
		formatter.VerboseLog("%s", d)
	}
	if routes.HasErrors(genDiags) && len(artifacts) == 0 {
		formatter.Error(ErrCodeGenerate, "route generation failed", genDiags)
		return NewExitError(ExitFailure, "route generation failed")
	}

	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Name)
		if opts.OutDir == "" {
			continue
		}
		target := filepath.Join(opts.OutDir, a.Name)
		if err := os.WriteFile(target, a.Content, 0o644); err != nil {
			formatter.Error(ErrCodeWrite, fmt.Sprintf("writing %s: %v", target, err), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(RoutesResult{Artifacts: names, Diagnostics: genDiags})
	}

	msg := fmt.Sprintf("generated %d artifact(s)", len(artifacts))
	if opts.OutDir != "" {
		msg += " in " + opts.OutDir
	}
	for _, d := range genDiags {
		msg += "\n  " + d.String()
	}
	if opts.OutDir == "" {
		for _, a := range artifacts {
			msg += fmt.Sprintf("\n--- %s ---\n%s", a.Name, a.Content)
		}
	}
	return formatter.Success(msg)
}

func loadManualRoutes(path string) ([]routes.ManualRoute, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var manual []routes.ManualRoute
	if err := yaml.Unmarshal(raw, &manual); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return manual, nil
}
