/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/flaskr-go/flaskr/config"
	"github.com/flaskr-go/flaskr/internal/db"
	"github.com/spf13/cobra"
)

// initDBCmd represents the init-db command.
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Clear the existing data and create new tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		if err := db.EnsureDir(cfg.Database.Path); err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer conn.Close()

		if err := db.InitSchema(cmd.Context(), conn.DB); err != nil {
			return fmt.Errorf("init schema failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Initialized the database.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
