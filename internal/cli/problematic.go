package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fefferico/quiz-app-sub000/internal/app"
	"github.com/fefferico/quiz-app-sub000/internal/config"
)

// NewProblematicCmd prints the ids of questions to review for a day.
func NewProblematicCmd(configPath *string) *cobra.Command {
	var day, contest string
	cmd := &cobra.Command{
		Use:   "problematic",
		Short: "List questions answered wrong or skipped on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.ParseDay(day)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			ids, err := rt.analytics.ProblematicQuestions(cmd.Context(), d, contest)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "today", `"today", "yesterday" or YYYY-MM-DD`)
	cmd.Flags().StringVar(&contest, "contest", "", "restrict to one contest")
	return cmd
}
