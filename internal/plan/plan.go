// Package plan computes rebase todo scripts that relocate a chosen set of
// commits into one contiguous block while every other commit keeps its
// original relative order. Compute is pure: no I/O, no shared state, the
// same inputs always produce the same script.
package plan

// Commit is one immutable entry in a linear history.
type Commit struct {
	Hash    string // content hash, unique within a log
	Summary string // first line of the commit message
}

// Op is a todo script instruction verb.
type Op string

// OpPick replays a commit unchanged. The scheduler only ever emits picks;
// what happens to the contiguous block afterwards (squash, edit, nothing)
// is the rewrite engine's decision, not ours.
const OpPick Op = "pick"

// Step is one todo script instruction.
type Step struct {
	Op      Op
	Hash    string
	Summary string
}

// Script is an ordered instruction list covering every commit of the input
// log exactly once.
type Script []Step

// Hashes returns the hashes of the script in emission order.
func (s Script) Hashes() []string {
	out := make([]string, len(s))
	for i, step := range s {
		out[i] = step.Hash
	}
	return out
}

// phase tracks where the scheduling pass stands relative to the anchor.
// The transition fires at most once, on the visit of the anchor commit.
type phase int

const (
	phaseBeforeAnchor phase = iota
	phaseAfterAnchor
)

// Compute produces the script that reorders log so the commits named in
// moveSet form one contiguous block. log is newest-first, the order git
// emits it; the pass itself runs oldest to newest.
//
// With an anchor, the block sits at the anchor's original position, headed
// by the anchor itself: anchor, then moved commits originally before it,
// then moved commits originally after it, all in log order. Without an
// anchor the block lands at the tip of history. moveSet is treated purely
// as membership; the block's internal order always comes from the log, so
// callers may supply the hashes in any order.
func Compute(log []Commit, moveSet []string, anchor *Commit) (Script, error) {
	if len(moveSet) == 0 {
		return nil, ErrEmptyMoveSet
	}
	if len(log) == 0 {
		return nil, ErrEmptyLog
	}

	moving := make(map[string]bool, len(moveSet))
	for _, h := range moveSet {
		moving[h] = true
	}

	var (
		state    = phaseBeforeAnchor
		moveBuf  []Commit // moved commits seen before the anchor, log order
		deferred []Commit // unmoved commits seen after the anchor, log order
	)
	script := make(Script, 0, len(log))
	emit := func(c Commit) {
		script = append(script, Step{Op: OpPick, Hash: c.Hash, Summary: c.Summary})
	}

	// log is newest-first; walk it back to front.
	for i := len(log) - 1; i >= 0; i-- {
		c := log[i]
		switch state {
		case phaseBeforeAnchor:
			switch {
			case moving[c.Hash]:
				moveBuf = append(moveBuf, c)
			case anchor != nil && c.Hash == anchor.Hash:
				state = phaseAfterAnchor
				emit(c)
				for _, m := range moveBuf {
					emit(m)
				}
				moveBuf = nil
			default:
				emit(c)
			}
		case phaseAfterAnchor:
			if moving[c.Hash] {
				// Nothing has been emitted since the block's last entry,
				// so this extends the contiguous run.
				emit(c)
			} else {
				deferred = append(deferred, c)
			}
		}
	}

	// Anchor requested but never visited: drop all buffered state, a
	// partial script must never surface as success.
	if anchor != nil && state == phaseBeforeAnchor {
		return nil, &AnchorNotFoundError{Hash: anchor.Hash}
	}

	for _, c := range deferred {
		emit(c)
	}
	// Nil-anchor case: the move buffer was never flushed mid-pass and the
	// block goes to the very end of history.
	for _, c := range moveBuf {
		emit(c)
	}
	return script, nil
}
