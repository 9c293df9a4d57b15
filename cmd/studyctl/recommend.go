package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print a student's top priority topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			student, err := requireFlag(cmd, "student")
			if err != nil {
				return err
			}
			exam, _ := cmd.Flags().GetString("exam")
			limit, _ := cmd.Flags().GetInt("limit")

			b, err := openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			recs, err := b.recommender.Recommend(cmd.Context(), student, exam, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s  %-36s  %-14s  %5s  %5s  %5s  %s\n", "Topic", "Name", "Subject", "Level", "Days", "Wrong", "Score")
			fmt.Fprintln(out, strings.Repeat("─", 100))
			for _, r := range recs {
				days := "never"
				if r.DaysSinceLastStudy != nil {
					days = fmt.Sprint(*r.DaysSinceLastStudy)
				}
				fmt.Fprintf(out, "%-12s  %-36s  %-14s  %5d  %5s  %5d  %.2f\n",
					r.TopicID, r.TopicName, r.SubjectName, r.KnowledgeLevel, days, r.WrongCount, r.PriorityScore)
			}
			return nil
		},
	}
	cmd.Flags().String("student", "", "Student ID")
	cmd.Flags().String("exam", "", "Exam type ID (all exam types when empty)")
	cmd.Flags().Int("limit", 20, "Number of topics")
	return cmd
}
