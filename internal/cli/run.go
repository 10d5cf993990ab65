package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/manifest/internal/engine"
	"github.com/roach88/manifest/internal/ir"
	"github.com/roach88/manifest/internal/store"
)

// RunOptions holds flags shared by the run and create commands.
type RunOptions struct {
	*RootOptions
	DB     string
	Tenant string
	User   string
	Role   string
	Params string
	Data   string
}

// NewRunCommand creates the run command: execute one command against
// one instance in a SQLite-backed store.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <source-file> <entity> <command> <instance-id>",
		Short: "Execute a command against an entity instance",
		Long: `Execute one guarded command against one instance.

Guards evaluate in declaration order; the first failure reports the
guard and leaves the instance untouched. On success the state mutation
and all emitted events commit in a single transaction.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args, cmd)
		},
	}

	addRunFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Params, "params", "{}", "command parameters as JSON")

	return cmd
}

// NewCreateCommand creates the create command: persist a new entity
// instance.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create <source-file> <entity>",
		Short:         "Create an entity instance",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args, cmd)
		},
	}

	addRunFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Data, "data", "{}", "instance properties as JSON")

	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.DB, "db", "manifest.db", "SQLite database path")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "default", "tenant id")
	cmd.Flags().StringVar(&opts.User, "user", "", "acting user id")
	cmd.Flags().StringVar(&opts.Role, "role", "", "acting user role")
}

// newEngine wires a SQLite-backed engine for one invocation. The
// returned closer must be called after use.
func newEngine(opts *RunOptions, path string, formatter *OutputFormatter) (*engine.Engine, func() error, error) {
	doc, diags, err := loadDocument(path, false)
	if err != nil {
		formatter.Error(ErrCodeRead, err.Error(), nil)
		return nil, nil, NewExitError(ExitCommandError, err.Error())
	}
	if doc == nil {
		formatter.Error(ErrCodeCompile,
			fmt.Sprintf("%s: %d problem(s)", path, len(diags)), diags)
		return nil, nil, NewExitError(ExitFailure, "compilation failed")
	}

	db, err := store.Open(opts.DB)
	if err != nil {
		formatter.Error(ErrCodeExecution, fmt.Sprintf("opening %s: %v", opts.DB, err), nil)
		return nil, nil, NewExitError(ExitCommandError, err.Error())
	}

	user := engine.User{ID: opts.User, TenantID: opts.Tenant, Role: opts.Role}
	eng := engine.New(doc, user, db.Provider(opts.Tenant))
	return eng, db.Close, nil
}

func parseObject(raw, what string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid %s JSON: %w", what, err)
	}
	return obj, nil
}

func runRun(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	source, entity, command, instanceID := args[0], args[1], args[2], args[3]

	params, err := parseObject(opts.Params, "--params")
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	eng, closeDB, err := newEngine(opts, source, formatter)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := eng.RunCommand(cmd.Context(), entity, command, instanceID, params)
	if err != nil {
		formatter.Error(ErrCodeExecution, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, renderResult(result))
	}

	if !result.Success {
		return NewExitError(ExitFailure, "command rejected")
	}
	return nil
}

func runCreate(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	source, entity := args[0], args[1]

	data, err := parseObject(opts.Data, "--data")
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	eng, closeDB, err := newEngine(opts, source, formatter)
	if err != nil {
		return err
	}
	defer closeDB()

	inst, err := eng.CreateInstance(cmd.Context(), entity, data)
	if err != nil {
		formatter.Error(ErrCodeExecution, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(inst)
	}
	return formatter.Success(fmt.Sprintf("created %s %s", entity, inst.ID))
}

func renderResult(result *engine.CommandResult) string {
	switch {
	case result.Success:
		msg := fmt.Sprintf("%s.%s on %s: ok", result.Entity, result.Command, result.InstanceID)
		for _, ev := range result.Events {
			msg += fmt.Sprintf("\n  emitted %s (%s)", ev.Name, ev.Type)
		}
		return msg
	case result.PolicyDenial != nil:
		return fmt.Sprintf("%s.%s on %s: denied by policy %s: %s",
			result.Entity, result.Command, result.InstanceID,
			result.PolicyDenial.Policy, result.PolicyDenial.Message)
	default:
		return fmt.Sprintf("%s.%s on %s: guard %d failed: %s",
			result.Entity, result.Command, result.InstanceID,
			result.GuardFailure.Index, result.GuardFailure.Message)
	}
}
