package cmd

import (
	"context"
	"log/slog"

	"subreddit-insights/worker"

	"github.com/spf13/cobra"
)

var (
	watchSchedule     string
	watchSkipAnalysis bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run collect on a cron schedule until interrupted",
	Long: "Runs one collection immediately and then on every tick of --schedule. " +
		"Accepts five-field cron expressions and descriptors such as @hourly or \"@every 6h\". " +
		"A tick that fires while a run is still going is skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := validConfig()
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		collect := &worker.Scheduled{
			Name:     "collect",
			Schedule: watchSchedule,
			Job: func(ctx context.Context) error {
				return p.collectOnce(ctx, watchSkipAnalysis)
			},
			RunAtStart: true,
		}
		slog.Info("starting scheduled collector", "subreddit", cfg.Subreddit, "schedule", watchSchedule)
		mgr := worker.NewManager(collect)

		ctx, cancel := signalContext()
		defer cancel()
		return mgr.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "@every 6h", "cron schedule for collection runs")
	watchCmd.Flags().BoolVar(&watchSkipAnalysis, "skip-analysis", false, "store posts without calling the model")
	rootCmd.AddCommand(watchCmd)
}
