// Package cli implements the exprql command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/internal/config"
	"github.com/zoobzio/exprql/internal/schemafile"
	"github.com/zoobzio/exprql/mariadb"
	"github.com/zoobzio/exprql/mssql"
	"github.com/zoobzio/exprql/postgres"
	"github.com/zoobzio/exprql/sqlite"
)

// RootOptions holds global state shared by all commands.
type RootOptions struct {
	ConfigFile string

	// Set by the root pre-run.
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "exprql",
		Short: "Compile expression trees to SQL",
		Long: `exprql compiles JSON-encoded expression trees and Go lambda source
into parameterized SQL for postgres, sqlite, mssql and mariadb.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if cfg.File != "" {
				opts.Logger.Debug("loaded config", "file", cfg.File)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default: ./exprql.yaml)")
	flags.String("dialect", "", "SQL dialect (postgres|sqlite|mssql|mariadb)")
	flags.String("escape", "", "LIKE escape character")
	flags.String("schema", "", "path to a YAML schema file")
	flags.String("object", "", "object bare predicates are compiled against")
	flags.StringP("output", "o", "", "output format (text|json)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.Dialects, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewDialectsCommand(opts))
	return cmd
}

// Dialect builds the configured dialect.
func (o *RootOptions) Dialect() (exprql.Dialect, error) {
	esc := o.Config.EscapeChar()
	switch o.Config.Dialect {
	case "postgres":
		if esc != 0 {
			return postgres.New(postgres.WithEscapeChar(esc)), nil
		}
		return postgres.New(), nil
	case "sqlite":
		if esc != 0 {
			return sqlite.New(sqlite.WithEscapeChar(esc)), nil
		}
		return sqlite.New(), nil
	case "mssql":
		if esc != 0 {
			return mssql.New(mssql.WithEscapeChar(esc)), nil
		}
		return mssql.New(), nil
	case "mariadb":
		if esc != 0 {
			return mariadb.New(mariadb.WithEscapeChar(esc)), nil
		}
		return mariadb.New(), nil
	}
	return nil, fmt.Errorf("unknown dialect %q", o.Config.Dialect)
}

// SchemaFile loads the configured schema file.
func (o *RootOptions) SchemaFile() (*schemafile.File, error) {
	if o.Config.Schema == "" {
		return nil, fmt.Errorf("no schema file configured (use --schema or the schema key)")
	}
	return schemafile.Load(o.Config.Schema)
}
