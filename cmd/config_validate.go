package cmd

import (
	"errors"
	"fmt"

	"subreddit-insights/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the loaded configuration against the config schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(out, "config file: %s\n", f)
		}
		err := config.Validate(viper.AllSettings())
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			for _, is := range ve.Issues {
				fmt.Fprintf(out, "  %s\n", is)
			}
			return fmt.Errorf("%d config issue(s)", len(ve.Issues))
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "config ok")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
