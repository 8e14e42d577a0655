package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fefferico/quiz-app-sub000/internal/config"
)

// NewSyncCmd opens the cache, which runs any pending content migration, and
// warms it from the remote store.
func NewSyncCmd(configPath *string) *cobra.Command {
	var (
		contest  string
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Migrate the local cache and refresh it from the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			questions, err := rt.store.GetAllQuestions(ctx, contest)
			if err != nil {
				return err
			}
			recent, err := rt.store.GetRecentAttempts(ctx, attempts, 0)
			if err != nil {
				return err
			}
			report := rt.cache.LastMigration()
			rt.log.WithFields(logrus.Fields{
				"schema":    rt.cache.Version(),
				"inserted":  report.Inserted,
				"updated":   report.Updated,
				"orphaned":  report.Orphaned,
				"questions": len(questions.Items),
				"attempts":  len(recent.Items),
				"stale":     questions.Stale || recent.Stale,
			}).Info("cache synchronised")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d questions, %d attempts", len(questions.Items), len(recent.Items))
			if questions.Stale || recent.Stale {
				fmt.Fprint(out, " ", color.YellowString("(remote unreachable, served from cache)"))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&contest, "contest", "", "contest to refresh; empty refreshes all")
	cmd.Flags().IntVar(&attempts, "attempts", 50, "number of recent attempts to refresh")
	return cmd
}
