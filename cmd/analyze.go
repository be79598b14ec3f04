package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the posts already stored and append the result to the report",
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
		return p.analyze(ctx, "")
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
