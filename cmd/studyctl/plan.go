package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-study/internal/plan"
)

func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and export weekly plans",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store a weekly plan for a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			student, err := requireFlag(cmd, "student")
			if err != nil {
				return err
			}
			exam, err := requireFlag(cmd, "exam")
			if err != nil {
				return err
			}
			assist, _ := cmd.Flags().GetBool("assist")
			title, _ := cmd.Flags().GetString("title")
			var start time.Time
			if v, _ := cmd.Flags().GetString("start"); v != "" {
				if start, err = time.Parse(time.DateOnly, v); err != nil {
					return fmt.Errorf("invalid --start %q: %w", v, err)
				}
			}

			b, err := openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			res, err := b.generator.Generate(cmd.Context(), student, plan.GenerateRequest{
				ExamTypeID: exam,
				Title:      title,
				StartDate:  start,
				Assist:     assist,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := res.Plan
			fmt.Fprintf(out, "plan %s (%s, %s to %s), %d items\n", p.ID, p.Source, p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), len(p.Items))
			if res.FallbackReason != "" {
				fmt.Fprintf(out, "fell back to rules: %s\n", res.FallbackReason)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if p.Explanation != "" {
				fmt.Fprintln(out, p.Explanation)
			}
			return nil
		},
	}
	generateCmd.Flags().String("student", "", "Student ID")
	generateCmd.Flags().String("exam", "", "Exam type ID")
	generateCmd.Flags().String("title", "", "Plan title")
	generateCmd.Flags().String("start", "", "First day, YYYY-MM-DD (next Monday when empty)")
	generateCmd.Flags().Bool("assist", false, "Ask the configured AI provider first")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored plan as an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			student, err := requireFlag(cmd, "student")
			if err != nil {
				return err
			}
			planID, err := requireFlag(cmd, "plan")
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("out")

			b, err := openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.plans.Get(cmd.Context(), student, planID)
			if err != nil {
				return err
			}
			if path == "" {
				path = fmt.Sprintf("plan-%s.xlsx", p.StartDate.Format(time.DateOnly))
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := plan.ExportXLSX(f, p, b.catalog); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().String("student", "", "Student ID")
	exportCmd.Flags().String("plan", "", "Plan ID")
	exportCmd.Flags().String("out", "", "Output file (plan-<start>.xlsx when empty)")

	planCmd.AddCommand(generateCmd, exportCmd)
	return planCmd
}
