package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/manifest/internal/ir"
	"github.com/roach88/manifest/internal/query"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RunOptions
	Where []string
}

// NewListCommand creates the list command: enumerate a tenant's
// instances, optionally filtered by property equality.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RunOptions: &RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "list <source-file> <entity>",
		Short: "List entity instances",
		Long: `List a tenant's instances of one entity type.

Filters are property=value pairs combined with AND; values parse as
integers or booleans when they look like one, strings otherwise.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args, cmd)
		},
	}

	addRunFlags(cmd, opts.RunOptions)
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter: property=value (repeatable)")

	return cmd
}

func runList(opts *ListOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	source, entity := args[0], args[1]

	pred, err := parseWhere(opts.Where)
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	eng, closeDB, err := newEngine(opts.RunOptions, source, formatter)
	if err != nil {
		return err
	}
	defer closeDB()

	instances, err := eng.ListInstances(cmd.Context(), entity, pred)
	if err != nil {
		formatter.Error(ErrCodeExecution, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(instances)
	}

	msg := fmt.Sprintf("%d %s instance(s)", len(instances), entity)
	for _, inst := range instances {
		msg += "\n  " + inst.ID
	}
	return formatter.Success(msg)
}

// parseWhere turns property=value pairs into an AND predicate, or nil
// when no filters were given.
func parseWhere(pairs []string) (query.Predicate, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	preds := make([]query.Predicate, 0, len(pairs))
	for _, pair := range pairs {
		prop, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --where %q: expected property=value", pair)
		}
		preds = append(preds, query.Eq{Property: prop, Value: parseScalar(raw)})
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return query.And{Predicates: preds}, nil
}

func parseScalar(raw string) ir.IRValue {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.IRInt(n)
	}
	if raw == "true" || raw == "false" {
		return ir.IRBool(raw == "true")
	}
	return ir.IRString(raw)
}
