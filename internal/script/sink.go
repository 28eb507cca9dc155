package script

import (
	"fmt"
	"os"
)

// Sink stores rendered scripts in temp files for the duration of one
// rewrite attempt.
type Sink struct {
	Dir string // directory for temp files; empty = os.TempDir
}

// Write stores the rendered script and returns its path together with a
// release func. Callers must defer release on every exit path — success,
// engine failure, or an error before the engine runs — so no script
// artifacts outlive the attempt. release is safe to call more than once.
func (s *Sink) Write(rendered []byte) (path string, release func(), err error) {
	f, err := os.CreateTemp(s.Dir, "regroup-todo-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("script: create temp file: %w", err)
	}
	path = f.Name()
	release = func() { os.Remove(path) }

	if _, err := f.Write(rendered); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("script: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("script: close %s: %w", path, err)
	}
	return path, release, nil
}
