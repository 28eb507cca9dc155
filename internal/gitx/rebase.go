package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrRebaseConflict is returned when the rebase stopped on a conflict and
// was left in progress for the user to resolve or abort.
var ErrRebaseConflict = errors.New("gitx: rebase stopped on conflict")

// Rebaser replays a branch according to a todo script. Implemented by the
// CLI rebaser in production and by fakes in runner tests.
type Rebaser interface {
	// Rebase runs the rewrite for upstream..HEAD using the script at
	// scriptPath. An empty upstream rewrites from the root of history.
	Rebase(ctx context.Context, scriptPath, upstream string) error
}

// cliRebaser implements Rebaser by running git rebase -i with the
// sequence editor replaced by a copy of the generated script.
type cliRebaser struct {
	dir string
}

// NewRebaser returns a Rebaser operating on the repository at dir.
func NewRebaser(dir string) Rebaser {
	return &cliRebaser{dir: dir}
}

func (r *cliRebaser) Rebase(ctx context.Context, scriptPath, upstream string) error {
	args := []string{"-C", r.dir, "rebase", "-i"}
	if upstream == "" {
		args = append(args, "--root")
	} else {
		args = append(args, upstream)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	// git invokes the sequence editor with the todo path appended; cp
	// overwrites that todo with our script. GIT_EDITOR=true suppresses
	// any other editor git might want to open.
	cmd.Env = append(os.Environ(),
		"GIT_SEQUENCE_EDITOR=cp "+shellQuote(scriptPath),
		"GIT_EDITOR=true",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if gitDir, dirErr := GitDir(ctx, r.dir); dirErr == nil && RebaseInProgress(gitDir) {
			return fmt.Errorf("%w: %s", ErrRebaseConflict, detail)
		}
		return fmt.Errorf("gitx: rebase: %w: %s", err, detail)
	}
	return nil
}

// RebaseInProgress reports whether the repository at gitDir has an
// unfinished rebase.
func RebaseInProgress(gitDir string) bool {
	for _, d := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(gitDir, d)); err == nil {
			return true
		}
	}
	return false
}

// shellQuote wraps s in single quotes for use inside the sequence editor
// command line, which git hands to sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
