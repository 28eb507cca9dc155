// Package watch reports interactive-rebase progress. git records its
// position in .git/rebase-merge/msgnum and the todo length in
// .git/rebase-merge/end; tailing those two files gives a live done/total
// counter while the engine runs.
package watch

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rebaseMergeDir = "rebase-merge"

// Progress is one observed position in the running rebase.
type Progress struct {
	Done  int
	Total int
}

// Watcher monitors a repository's git dir for rebase progress using
// fsnotify.
type Watcher struct {
	gitDir   string
	Progress <-chan Progress // Read-only external channel

	progress chan Progress
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

// New creates a watcher for the repository whose git dir is gitDir. The
// rebase-merge directory usually does not exist yet; the watcher picks it
// up when git creates it.
func New(gitDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Progress, 16)
	w := &Watcher{
		gitDir:   gitDir,
		Progress: ch,
		progress: ch,
		done:     make(chan struct{}),
		watcher:  fw,
	}
	return w, nil
}

// Start begins watching for progress updates.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.gitDir); err != nil {
		return err
	}
	// The rebase may already be underway when we attach.
	if _, err := os.Stat(w.rebaseDir()); err == nil {
		_ = w.watcher.Add(w.rebaseDir())
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and the progress channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.progress)
}

func (w *Watcher) rebaseDir() string {
	return filepath.Join(w.gitDir, rebaseMergeDir)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: git touches msgnum and end separately per pick.
	const debounce = 50 * time.Millisecond
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	var last Progress
	dirty := false

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && event.Name == w.rebaseDir() {
				_ = w.watcher.Add(w.rebaseDir())
				dirty = true
				continue
			}
			base := filepath.Base(event.Name)
			if filepath.Dir(event.Name) == w.rebaseDir() && (base == "msgnum" || base == "end") {
				dirty = true
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if !dirty {
				continue
			}
			p, ok := ReadProgress(w.gitDir)
			if !ok {
				// Counters not readable yet; keep retrying on the next
				// tick, writes may have raced the directory watch.
				continue
			}
			dirty = false
			if p == last {
				continue
			}
			last = p
			select {
			case w.progress <- p:
			default:
				// Drop rather than stall the rebase watch loop.
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; progress is best-effort.
		}
	}
}

// ReadProgress reads the current rebase position from gitDir. ok is false
// when no rebase is running or the counters are not readable yet.
func ReadProgress(gitDir string) (Progress, bool) {
	dir := filepath.Join(gitDir, rebaseMergeDir)
	done, err := readCount(filepath.Join(dir, "msgnum"))
	if err != nil {
		return Progress{}, false
	}
	total, err := readCount(filepath.Join(dir, "end"))
	if err != nil {
		return Progress{}, false
	}
	return Progress{Done: done, Total: total}, true
}

func readCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
