package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/codec"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Alias string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a JSON expression to SQL",
		Long: `Compile reads a JSON-encoded expression from file, or stdin when no file
is given, and prints the SQL and parameters for the configured dialect.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open expression: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runCompile(cmd, opts, in)
		},
	}

	cmd.Flags().StringVar(&opts.Alias, "alias", "", "name of the outermost row for qualified properties")
	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions, in io.Reader) error {
	expr, err := codec.Decode(in)
	if err != nil {
		return err
	}
	res, err := opts.compile(expr, opts.Alias)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), opts.Config.Output, nil, res)
}

// compile compiles expr against the configured schema file and dialect.
func (o *RootOptions) compile(expr exprql.Expr, alias string) (*exprql.QueryResult, error) {
	f, err := o.SchemaFile()
	if err != nil {
		return nil, err
	}
	schema, err := f.Schema()
	if err != nil {
		return nil, err
	}
	dialect, err := o.Dialect()
	if err != nil {
		return nil, err
	}

	copts := []exprql.Option{exprql.WithLogger(o.Logger)}
	if o.Config.Object != "" {
		copts = append(copts, exprql.WithObject(o.Config.Object))
	}
	if alias != "" {
		copts = append(copts, exprql.WithAlias(alias))
	}
	res, err := exprql.Compile(expr, schema, dialect, copts...)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("compiled", "dialect", dialect.Name(), "params", len(res.Params))
	return res, nil
}
