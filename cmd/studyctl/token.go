package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-study/internal/httpapi"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a student (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			student, _ := cmd.Flags().GetString("student")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if student == "" {
				student = uuid.NewString()
			} else if _, err := uuid.Parse(student); err != nil {
				return fmt.Errorf("--student must be a UUID: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Env != "development" {
				return fmt.Errorf("token signing is only available when LEARN_ENV=development")
			}
			tok, err := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Sign(student, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "student %s\n%s\n", student, tok)
			return nil
		},
	}
	cmd.Flags().String("student", "", "Student UUID (random when empty)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
