package cmd

import "github.com/spf13/cobra"

// redisCmd groups commands for the optional run-log Redis.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Run-log Redis utilities",
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
