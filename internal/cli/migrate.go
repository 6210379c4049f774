package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/celsus/core/catalog/postgresengine"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema",
		Long: `Create the catalog schema, tables, indexes and search trigger if they do not exist.
Running it again is harmless.

Example:
  celsus migrate
  PGSCHEMA=celsus_staging celsus migrate --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}

				ddl, err := postgresengine.SchemaSQL(cfg.Postgres.Schema)
				if err != nil {
					return err
				}

				printLine(cmd.OutOrStdout(), ddl)

				return nil
			}

			rt, err := newRuntime(cmd.Context(), opts, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err = rt.store.Migrate(cmd.Context()); err != nil {
				return err
			}

			printLine(cmd.OutOrStdout(), "schema "+rt.cfg.Postgres.Schema+" is up to date")

			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL instead of applying it")

	return cmd
}
