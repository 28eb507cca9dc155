package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stormvale/regroup/internal/config"
	"github.com/stormvale/regroup/internal/gitx"
	"github.com/stormvale/regroup/internal/journal"
	"github.com/stormvale/regroup/internal/plan"
	"github.com/stormvale/regroup/internal/rewrite"
	"github.com/stormvale/regroup/internal/script"
	"github.com/stormvale/regroup/internal/telemetry"
	"github.com/stormvale/regroup/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run <commit>...",
	Short: "Rewrite the branch so the given commits form one contiguous block",
	Long: `Computes the reordering and applies it with git rebase. With --after
the block lands directly after the anchor commit; without it the block
moves to the tip of the branch. With --dry-run the todo script is printed
and nothing is rewritten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("after", "", "anchor commit; the block lands directly after it")
	runCmd.Flags().String("base", "", "lower boundary of the rewritten range (default: root of history)")
	runCmd.Flags().Bool("dry-run", false, "print the todo script without rebasing")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	base, moves, anchor, err := resolveRevs(ctx, cfg.WorkDir, cmd, args)
	if err != nil {
		return err
	}

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		log, err := gitx.Log(ctx, cfg.WorkDir, base)
		if err != nil {
			return err
		}
		s, err := plan.Compute(log, moves, anchor)
		if err != nil {
			return err
		}
		cmd.OutOrStdout().Write(script.Render(s))
		return nil
	}

	gitDir, err := gitx.GitDir(ctx, cfg.WorkDir)
	if err != nil {
		return err
	}
	if gitx.RebaseInProgress(gitDir) {
		return fmt.Errorf("a rebase is already in progress; finish or abort it first")
	}
	branch, err := gitx.CurrentBranch(ctx, cfg.WorkDir)
	if err != nil {
		return err
	}

	runner := &rewrite.Runner{
		Log:     gitx.Log,
		Rebaser: gitx.NewRebaser(cfg.WorkDir),
		Sink:    &script.Sink{},
		GitDir:  gitDir,
		Branch:  branch,
	}

	if cfg.Journal {
		j, err := journal.Open(ctx, filepath.Join(gitDir, "regroup.db"))
		if err != nil {
			return err
		}
		defer j.Close()
		runner.Journal = j
	}
	if cfg.Telemetry {
		em, err := telemetry.NewEmitter(filepath.Join(gitDir, "regroup-events.jsonl"))
		if err != nil {
			return err
		}
		defer em.Close()
		runner.Emitter = em
	}
	if cfg.Verbose {
		runner.OnProgress = func(p watch.Progress) {
			fmt.Fprintf(cmd.ErrOrStderr(), "picked %d/%d\n", p.Done, p.Total)
		}
	}

	err = runner.Run(ctx, rewrite.Request{
		Dir:    cfg.WorkDir,
		Base:   base,
		Moves:  moves,
		Anchor: anchor,
	})
	if errors.Is(err, gitx.ErrRebaseConflict) {
		return fmt.Errorf("%w\nresolve the conflict and run 'git rebase --continue', or abort with 'git rebase --abort'", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "regrouped %d commit(s) on %s\n", len(moves), branch)
	return nil
}
