// Package gitx drives the git CLI: reading the commit log for a range and
// replaying a branch through interactive rebase with a generated todo
// script. All commands run through exec.CommandContext with stderr folded
// into the returned error.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/stormvale/regroup/internal/plan"
)

// logFormat separates hash and subject with a NUL so subjects that contain
// spaces or shell metacharacters parse unambiguously. Subjects themselves
// can never contain a newline, so records stay line-delimited.
const logFormat = "%H%x00%s"

// IsRepo reports whether dir is inside a git repository and git itself is
// on PATH.
func IsRepo(ctx context.Context, dir string) bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// Log returns the commits in base..HEAD, newest first, exactly as git
// emits them. An empty base means the whole history from the root. An
// empty range returns an empty slice; callers decide whether that is an
// error.
func Log(ctx context.Context, dir, base string) ([]plan.Commit, error) {
	rng := "HEAD"
	if base != "" {
		rng = base + "..HEAD"
	}
	out, err := runGit(ctx, dir, "log", "--format="+logFormat, rng)
	if err != nil {
		return nil, fmt.Errorf("gitx: log %s: %w", rng, err)
	}
	return parseLog(out)
}

// Resolve expands a user-supplied rev (short hash, ref name) into the full
// hash and subject of the commit it names.
func Resolve(ctx context.Context, dir, ref string) (plan.Commit, error) {
	out, err := runGit(ctx, dir, "log", "-1", "--format="+logFormat, ref)
	if err != nil {
		return plan.Commit{}, fmt.Errorf("gitx: resolve %q: %w", ref, err)
	}
	commits, err := parseLog(out)
	if err != nil {
		return plan.Commit{}, err
	}
	if len(commits) != 1 {
		return plan.Commit{}, fmt.Errorf("gitx: resolve %q: no commit found", ref)
	}
	return commits[0], nil
}

// CurrentBranch returns the checked-out branch name, or "HEAD" when
// detached.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("gitx: current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GitDir returns the absolute path of the repository's .git directory.
func GitDir(ctx context.Context, dir string) (string, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("gitx: locate git dir: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// runGit executes a git subcommand in dir and returns stdout. On failure
// the trimmed stderr is folded into the error.
func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func parseLog(out []byte) ([]plan.Commit, error) {
	var commits []plan.Commit
	for _, line := range strings.Split(strings.TrimSuffix(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		hash, summary, ok := strings.Cut(line, "\x00")
		if !ok {
			return nil, fmt.Errorf("gitx: malformed log line %q", line)
		}
		commits = append(commits, plan.Commit{Hash: hash, Summary: summary})
	}
	return commits, nil
}
