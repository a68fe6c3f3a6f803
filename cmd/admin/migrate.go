package main

import (
	"Storefront/internal/api/config"
	"Storefront/internal/pkg/database"
	"Storefront/internal/pkg/mongo"
	"fmt"

	"github.com/spf13/cobra"
)

var withMongo bool

// migrateCmd 建表，可选创建 Mongo 聊天索引
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the relational schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		if err = database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "relational schema is up to date")

		if withMongo {
			// InitMongo 会顺带创建聊天索引
			if _, err = mongo.InitMongo(config.Cfg.Mongo); err != nil {
				return fmt.Errorf("failed to prepare mongo: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mongo chat indexes are up to date")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&withMongo, "mongo", false, "also create mongo chat indexes")
}
