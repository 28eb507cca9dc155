package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stormvale/regroup/internal/config"
	"github.com/stormvale/regroup/internal/gitx"
	"github.com/stormvale/regroup/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded rewrite attempts for this repository",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("count", "n", 10, "number of attempts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	gitDir, err := gitx.GitDir(ctx, cfg.WorkDir)
	if err != nil {
		return err
	}
	dbPath := filepath.Join(gitDir, "regroup.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "no rewrites recorded")
		return nil
	}

	j, err := journal.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer j.Close()

	n, _ := cmd.Flags().GetInt("count")
	attempts, err := j.Recent(ctx, n)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no rewrites recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tBRANCH\tMOVED\tSTATE\tERROR")
	for _, a := range attempts {
		errText := a.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			a.StartedAt.Local().Format(time.DateTime), a.Branch, a.Moved, a.State, errText)
	}
	return w.Flush()
}
