package main

import (
	"Storefront/internal/api/config"
	"Storefront/internal/repository"
	"Storefront/internal/service"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

// createAdminCmd 不指定邮箱时使用 chat.platform_admin_email，即平台客服账号
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := adminEmail
		if email == "" {
			email = config.Cfg.Chat.PlatformAdminEmail
		}
		if email == "" {
			return fmt.Errorf("--email is required when chat.platform_admin_email is not configured")
		}

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		user, created, err := service.ProvisionAdmin(cmd.Context(), repository.NewUserRepo(db), email, adminName, adminPassword)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) is an admin\n", user.Email, user.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "account email (default: chat.platform_admin_email)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "display name for a new account")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password for a new account (min 6 characters)")
}
