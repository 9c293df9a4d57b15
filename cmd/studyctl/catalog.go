package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the curriculum catalog",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the curriculum and report structural problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range catalog.ExamTypes() {
				fmt.Fprintf(out, "%-8s %-32s %3d subjects %4d topics\n", e.ID, e.Name, len(e.Subjects), len(catalog.TopicsForExam(e.ID)))
			}
			fmt.Fprintln(out, "curriculum OK")
			return nil
		},
	}

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List topics in prerequisite order",
		RunE: func(cmd *cobra.Command, args []string) error {
			exam, _ := cmd.Flags().GetString("exam")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			var subjects map[string]bool
			if exam != "" {
				if _, ok := catalog.ExamType(exam); !ok {
					return fmt.Errorf("unknown exam type %q", exam)
				}
				subjects = map[string]bool{}
				for _, s := range catalog.SubjectsForExam(exam) {
					subjects[s.ID] = true
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s  %-40s  %-14s  %4s  %s\n", "ID", "Name", "Subject", "Diff", "Requires")
			fmt.Fprintln(out, strings.Repeat("─", 96))
			n := 0
			for _, t := range catalog.TopologicalOrder() {
				if subjects != nil && !subjects[t.SubjectID] {
					continue
				}
				name := t.Name
				if len([]rune(name)) > 40 {
					name = string([]rune(name)[:37]) + "..."
				}
				fmt.Fprintf(out, "%-12s  %-40s  %-14s  %4d  %s\n", t.ID, name, t.SubjectID, t.Difficulty, strings.Join(t.Prerequisites.Required, ","))
				n++
			}
			fmt.Fprintf(out, "\n%d topics\n", n)
			return nil
		},
	}
	topicsCmd.Flags().String("exam", "", "Only topics of this exam type")

	catalogCmd.AddCommand(validateCmd, topicsCmd)
	return catalogCmd
}
