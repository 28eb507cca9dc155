package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stormvale/regroup/internal/config"
	"github.com/stormvale/regroup/internal/gitx"
	"github.com/stormvale/regroup/internal/guard"
	"github.com/stormvale/regroup/internal/watch"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a rewrite or rebase is active in this repository",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	out := cmd.OutOrStdout()

	gitDir, err := gitx.GitDir(ctx, cfg.WorkDir)
	if err != nil {
		return err
	}

	if pid, branch, held := guard.Held(gitDir); held {
		fmt.Fprintf(out, "rewrite lock held by pid %d on branch %s\n", pid, branch)
	} else {
		fmt.Fprintln(out, "no rewrite lock")
	}

	if gitx.RebaseInProgress(gitDir) {
		if p, ok := watch.ReadProgress(gitDir); ok {
			fmt.Fprintf(out, "rebase in progress: %d/%d picks applied\n", p.Done, p.Total)
		} else {
			fmt.Fprintln(out, "rebase in progress")
		}
	} else {
		fmt.Fprintln(out, "no rebase in progress")
	}
	return nil
}
