package cmd

import (
	"log/slog"

	"subreddit-insights/internal/dashboard"
	"subreddit-insights/internal/filter"
	"subreddit-insights/internal/redisclient"
	"subreddit-insights/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var dashboardAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the read-only dashboard over the database and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		addr := cfg.Dashboard.Addr
		if dashboardAddr != "" {
			addr = dashboardAddr
		}
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}

		opts := dashboard.Options{
			DBPath:      cfg.Database.File,
			ReportPath:  cfg.OutputFile,
			Subreddit:   cfg.Subreddit,
			Year:        cfg.Year,
			Matcher:     filter.NewMatcher(cfg.Keywords),
			RecentPosts: cfg.Dashboard.RecentPosts,
			ReportItems: cfg.Dashboard.ReportItems,
		}
		if cfg.Redis.Enabled {
			rdb := redisclient.New(cfg.Redis)
			defer rdb.Close()
			opts.Runs = storage.NewRunLog(rdb, cfg.Redis.Key, cfg.Redis.MaxRuns)
		}
		srv := dashboard.New(opts)
		defer srv.Close()

		ctx, cancel := signalContext()
		defer cancel()
		if err := srv.Run(ctx, addr); err != nil {
			return err
		}
		slog.Info("dashboard: stopped")
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardAddr, "addr", "", "listen address (overrides dashboard.addr)")
	rootCmd.AddCommand(dashboardCmd)
}
