package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"subreddit-insights/internal/report"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect the analysis report file",
}

var reportShowFull bool

var reportShowCmd = &cobra.Command{
	Use:   "show [report_path]",
	Short: "List report entries with their metadata",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := GetConfig().OutputFile
		if len(args) == 1 {
			path = args[0]
		}
		entries, err := report.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("report %s not generated yet", path)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d entries\n", path, len(entries))
		for i, e := range entries {
			fmt.Fprintf(out, "\n#%d", i+1)
			if !e.GeneratedAt.IsZero() {
				fmt.Fprintf(out, " %s", e.GeneratedAt.Format("2006-01-02 15:04"))
			}
			if e.RunID != "" {
				fmt.Fprintf(out, " run=%s", e.RunID)
			}
			if e.Model != "" {
				fmt.Fprintf(out, " model=%s", e.Model)
			}
			fmt.Fprintf(out, " posts=%d tokens=%d", e.Posts, e.InputTokens)
			if e.Truncated {
				fmt.Fprint(out, " truncated")
			}
			fmt.Fprintf(out, "\nbody bytes: %d\n", len(e.Body))
			if reportShowFull {
				fmt.Fprintln(out, strings.TrimSpace(e.Body))
			}
		}
		return nil
	},
}

func init() {
	reportShowCmd.Flags().BoolVar(&reportShowFull, "full", false, "print entry bodies")
	reportCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportCmd)
}
