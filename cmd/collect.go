package cmd

import (
	"github.com/spf13/cobra"
)

var collectSkipAnalysis bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection pass and append an analysis to the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := validConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()
		return p.collectOnce(ctx, collectSkipAnalysis)
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectSkipAnalysis, "skip-analysis", false, "store posts without calling the model")
	rootCmd.AddCommand(collectCmd)
}
