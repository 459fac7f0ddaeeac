package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"beanhealth/internal/config"
	"beanhealth/internal/database"
	"beanhealth/internal/logging"
	"beanhealth/internal/services"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var p services.CreateUserParams

	cmd := &cobra.Command{
		Use:   "create_admin",
		Short: "Create a staff account that can review demo requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logging.Initialize(""); err != nil {
				return err
			}
			defer logging.Sync()

			if err := database.Init(cfg.Database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			authSvc := services.NewAuthService(database.GetDB(), &cfg.Auth, logging.Named("auth"))
			user, err := authSvc.CreateUser(cmd.Context(), p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Admin user created successfully!")
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			fmt.Fprintf(out, "Email:    %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.Username, "username", "admin", "login name")
	cmd.Flags().StringVar(&p.Email, "email", "admin@beanhealth.in", "e-mail address")
	cmd.Flags().StringVar(&p.Password, "password", "", "password (required)")
	cmd.Flags().StringVar(&p.FullName, "full-name", "System Administrator", "display name")
	cmd.Flags().BoolVar(&p.IsAdmin, "admin", true, "grant admin rights")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
