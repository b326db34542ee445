package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/codec"
	"github.com/zoobzio/exprql/lambda"
	"gopkg.in/yaml.v3"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Query bool
	Alias string
	Env   map[string]string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <source>",
		Short: "Convert a Go lambda to an expression and SQL",
		Long: `Convert parses a Go function literal over rows of --object, using a row
type generated from the schema file, and prints the JSON expression and the
compiled SQL.

Examples:
  exprql convert --object User 'func(u User) bool { return u.Age >= 18 }'
  exprql convert --object User --query 'func(q Query) Query { return q.Take(10) }'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Query, "query", false, "convert a query pipeline instead of a predicate")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "name of the outermost row for correlated members")
	cmd.Flags().StringToStringVar(&opts.Env, "env", nil, "variables visible to the lambda (name=yaml-value)")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *ConvertOptions, src string) error {
	if opts.Config.Object == "" {
		return fmt.Errorf("convert needs an object (use --object or the object key)")
	}
	f, err := opts.SchemaFile()
	if err != nil {
		return err
	}
	row, err := rowType(f, opts.Config.Object, relationDepth)
	if err != nil {
		return err
	}
	env, err := parseEnv(opts.Env)
	if err != nil {
		return err
	}

	conv := lambda.NewFor(row,
		lambda.WithObject(opts.Config.Object),
		lambda.WithEnv(env),
		lambda.WithLogger(opts.Logger),
	)
	var expr exprql.Expr
	if opts.Query {
		expr, err = conv.Query(src)
	} else {
		expr, err = conv.Predicate(src)
	}
	if err != nil {
		return err
	}

	data, err := codec.Marshal(expr)
	if err != nil {
		return err
	}
	res, err := opts.compile(expr, opts.Alias)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), opts.Config.Output, data, res)
}

// parseEnv decodes each value as a YAML scalar, so 18 is an int and true a bool.
func parseEnv(raw map[string]string) (map[string]any, error) {
	env := make(map[string]any, len(raw))
	for name, text := range raw {
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("env %s: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}
