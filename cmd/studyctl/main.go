// Command studyctl is the operator CLI: it migrates the database, checks the
// curriculum and drives recommendations and plan generation without the
// HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "studyctl",
		Short:        "Operate the study planner",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("curriculum", "", "Curriculum directory (overrides LEARN_CURRICULUM_PATH)")
	root.PersistentFlags().String("database-url", "", "PostgreSQL URL (overrides LEARN_DATABASE_URL)")

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// requireFlag fails the command when a string flag is empty.
func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}
