package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortlink/internal/db"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *Cfg
		cfg.Database.AutoMigrate = false
		database, err := db.ConnectDB(&cfg, log)
		if err != nil {
			return err
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database migrations applied.")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(MigrateCmd)
}
