// Package rewrite orchestrates one history rewrite: fetch the log, compute
// the plan, and drive the rebase engine with the generated script. The
// scheduler itself is pure; this package owns everything around it — the
// per-repo lock, the script temp file, the journal row, and telemetry —
// and guarantees each resource is released on every exit path.
package rewrite

import (
	"context"
	"errors"
	"fmt"

	"github.com/stormvale/regroup/internal/gitx"
	"github.com/stormvale/regroup/internal/guard"
	"github.com/stormvale/regroup/internal/journal"
	"github.com/stormvale/regroup/internal/plan"
	"github.com/stormvale/regroup/internal/script"
	"github.com/stormvale/regroup/internal/telemetry"
	"github.com/stormvale/regroup/internal/watch"
)

// LogFunc fetches the commit log for base..HEAD, newest first.
// Production wiring uses gitx.Log; tests substitute fixtures.
type LogFunc func(ctx context.Context, dir, base string) ([]plan.Commit, error)

// Request describes one rewrite.
type Request struct {
	Dir    string       // repository working directory
	Base   string       // lower boundary ref; empty = root of history
	Moves  []string     // full hashes of the commits to relocate
	Anchor *plan.Commit // nil = relocate to the tip
}

// Runner wires the scheduler to its collaborators.
type Runner struct {
	Log     LogFunc
	Rebaser gitx.Rebaser
	Sink    *script.Sink
	Journal *journal.Journal   // nil disables the attempt journal
	Emitter *telemetry.Emitter // nil is a no-op emitter
	GitDir  string
	Branch  string

	// OnProgress, when set, receives live rebase progress.
	OnProgress func(watch.Progress)
}

// Run performs the rewrite. The rebase engine is never invoked when the
// plan computation fails, and the script temp file and repo lock are
// released no matter how the attempt ends.
func (r *Runner) Run(ctx context.Context, req Request) error {
	log, err := r.Log(ctx, req.Dir, req.Base)
	if err != nil {
		return err
	}

	s, err := plan.Compute(log, req.Moves, req.Anchor)
	if err != nil {
		return err
	}
	r.emit(telemetry.Event{Kind: telemetry.KindPlanComputed, Data: map[string]int{
		"commits": len(log),
		"moved":   len(req.Moves),
	}})

	lock, err := guard.Acquire(r.GitDir, r.Branch)
	if err != nil {
		return err
	}
	defer lock.Release()

	var attemptID string
	if r.Journal != nil {
		anchor := ""
		if req.Anchor != nil {
			anchor = req.Anchor.Hash
		}
		attemptID, err = r.Journal.Begin(ctx, journal.Attempt{
			Branch:   r.Branch,
			Upstream: req.Base,
			Anchor:   anchor,
			Moved:    len(req.Moves),
		})
		if err != nil {
			return err
		}
	}
	finish := func(state, msg string) {
		if r.Journal != nil && attemptID != "" {
			_ = r.Journal.Finish(ctx, attemptID, state, msg)
		}
	}

	path, release, err := r.Sink.Write(script.Render(s))
	if err != nil {
		finish(journal.StateFailed, err.Error())
		return err
	}
	defer release()
	r.emit(telemetry.Event{Kind: telemetry.KindScriptWritten, AttemptID: attemptID, Data: map[string]any{
		"steps": len(s),
	}})

	if r.OnProgress != nil {
		if stop, err := r.watchProgress(attemptID); err == nil {
			defer stop()
		}
	}

	r.emit(telemetry.Event{Kind: telemetry.KindRebaseStart, AttemptID: attemptID})
	err = r.Rebaser.Rebase(ctx, path, req.Base)
	switch {
	case err == nil:
		finish(journal.StateDone, "")
		r.emit(telemetry.Event{Kind: telemetry.KindRebaseDone, AttemptID: attemptID})
		return nil
	case errors.Is(err, gitx.ErrRebaseConflict):
		finish(journal.StateConflict, err.Error())
		r.emit(telemetry.Event{Kind: telemetry.KindRebaseConflict, AttemptID: attemptID})
		return fmt.Errorf("rewrite: %w", err)
	default:
		finish(journal.StateFailed, err.Error())
		r.emit(telemetry.Event{Kind: telemetry.KindRebaseFailed, AttemptID: attemptID})
		return fmt.Errorf("rewrite: %w", err)
	}
}

// watchProgress starts the fsnotify watcher and forwards progress to the
// caller until stop is called.
func (r *Runner) watchProgress(attemptID string) (stop func(), err error) {
	w, err := watch.New(r.GitDir)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range w.Progress {
			r.OnProgress(p)
			r.emit(telemetry.Event{Kind: telemetry.KindProgress, AttemptID: attemptID, Data: map[string]int{
				"done":  p.Done,
				"total": p.Total,
			}})
		}
	}()
	return func() {
		w.Stop()
		<-done
	}, nil
}

func (r *Runner) emit(evt telemetry.Event) {
	evt.Branch = r.Branch
	_ = r.Emitter.Emit(evt)
}
