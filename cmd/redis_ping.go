package cmd

import (
	"context"
	"fmt"
	"time"

	"subreddit-insights/internal/redisclient"
	"subreddit-insights/internal/storage"

	"github.com/spf13/cobra"
)

// pingCmd checks the run-log Redis and reports how many runs it holds.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the run-log Redis and print the latest run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := rdb.Ping(ctx).Result()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res)
		if !cfg.Redis.Enabled {
			fmt.Fprintln(out, "run log disabled (redis.enabled=false)")
			return nil
		}
		runs, err := storage.NewRunLog(rdb, cfg.Redis.Key, cfg.Redis.MaxRuns).Recent(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "no runs recorded under %s\n", cfg.Redis.Key)
			return nil
		}
		r := runs[0]
		fmt.Fprintf(out, "last run %s at %s: %d new posts, %d pages", r.ID, r.StartedAt.Format(time.RFC3339), r.Inserted, r.Pages)
		if r.Error != "" {
			fmt.Fprintf(out, ", error: %s", r.Error)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	redisCmd.AddCommand(pingCmd)
}
