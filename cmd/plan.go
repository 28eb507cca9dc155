package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stormvale/regroup/internal/config"
	"github.com/stormvale/regroup/internal/gitx"
	"github.com/stormvale/regroup/internal/plan"
	"github.com/stormvale/regroup/internal/script"
)

var planCmd = &cobra.Command{
	Use:   "plan <commit>...",
	Short: "Print the todo script a rewrite would use, without applying it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().String("after", "", "anchor commit; the block lands directly after it")
	planCmd.Flags().String("base", "", "lower boundary of the rewritten range (default: root of history)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	base, moves, anchor, err := resolveRevs(ctx, cfg.WorkDir, cmd, args)
	if err != nil {
		return err
	}
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

// resolveRevs expands the CLI revs into full hashes: the --base boundary,
// the commits to move, and the optional --after anchor. Shared by plan
// and run.
func resolveRevs(ctx context.Context, dir string, cmd *cobra.Command, args []string) (base string, moves []string, anchor *plan.Commit, err error) {
	if !gitx.IsRepo(ctx, dir) {
		return "", nil, nil, fmt.Errorf("%s is not a git repository", dir)
	}

	if base, _ = cmd.Flags().GetString("base"); base != "" {
		c, err := gitx.Resolve(ctx, dir, base)
		if err != nil {
			return "", nil, nil, err
		}
		base = c.Hash
	}

	moves = make([]string, 0, len(args))
	for _, arg := range args {
		c, err := gitx.Resolve(ctx, dir, arg)
		if err != nil {
			return "", nil, nil, err
		}
		moves = append(moves, c.Hash)
	}

	if after, _ := cmd.Flags().GetString("after"); after != "" {
		c, err := gitx.Resolve(ctx, dir, after)
		if err != nil {
			return "", nil, nil, err
		}
		anchor = &c
	}
	return base, moves, anchor, nil
}
