package ledgerctl

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(migrate Migrator) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, dirty, err := migrate(cmd.Context())
			if err != nil {
				return err
			}
			if dirty {
				return fmt.Errorf("schema version %d is dirty, fix it by hand before migrating again", version)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
