package main

import (
	"Storefront/internal/api/config"
	"Storefront/internal/pkg/database"
	"Storefront/internal/pkg/logger"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// rootCmd 运维命令入口，配置与服务端共用 ./configs/config.yaml
var rootCmd = &cobra.Command{
	Use:   "storefront-admin",
	Short: "Storefront operator tool",
	Long: `Storefront operator tool for schema migration and
provisioning the platform support account.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(); err != nil {
			return err
		}
		logger.InitLogger()
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func openDB() (*gorm.DB, error) {
	dbCfg := config.Cfg.DB
	return database.NewGormDB(&dbCfg)
}
