package plan

import (
	"errors"
	"strings"
	"testing"
)

// makeLog builds a newest-first log from oldest-to-newest hash names.
// "A,B,C" means A is the oldest commit and C the newest, so the returned
// slice is [C, B, A], matching what git log emits.
func makeLog(t *testing.T, oldestFirst ...string) []Commit {
	t.Helper()
	log := make([]Commit, 0, len(oldestFirst))
	for i := len(oldestFirst) - 1; i >= 0; i-- {
		h := oldestFirst[i]
		log = append(log, Commit{Hash: h, Summary: "commit " + h})
	}
	return log
}

func commitIn(log []Commit, hash string) *Commit {
	for i := range log {
		if log[i].Hash == hash {
			return &log[i]
		}
	}
	return nil
}

// wantOrder fails unless the script's hashes match exactly, oldest first.
func wantOrder(t *testing.T, s Script, want ...string) {
	t.Helper()
	got := s.Hashes()
	if len(got) != len(want) {
		t.Fatalf("script has %d steps, want %d: got %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("script order = %v, want %v", got, want)
		}
	}
}

func TestCompute_MoveAroundAnchor(t *testing.T) {
	t.Parallel()
	// log oldest-to-newest: A B C D E; move A and E after anchor C.
	log := makeLog(t, "A", "B", "C", "D", "E")
	s, err := Compute(log, []string{"A", "E"}, commitIn(log, "C"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "B", "C", "A", "E", "D")
}

func TestCompute_MoveToTip(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A", "B", "C", "D", "E")
	s, err := Compute(log, []string{"B"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "A", "C", "D", "E", "B")
}

func TestCompute_MoveEverything(t *testing.T) {
	t.Parallel()
	// Moving every commit with no anchor leaves the order unchanged.
	log := makeLog(t, "A", "B", "C")
	s, err := Compute(log, []string{"A", "B", "C"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "A", "B", "C")
}

func TestCompute_AnchorIsNewestCommit(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A", "B", "C", "D")
	s, err := Compute(log, []string{"A"}, commitIn(log, "D"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "B", "C", "D", "A")
}

func TestCompute_AnchorIsOldestCommit(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A", "B", "C", "D")
	s, err := Compute(log, []string{"C"}, commitIn(log, "A"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "A", "C", "B", "D")
}

func TestCompute_MoversOnBothSidesOfAnchor(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A", "B", "C", "D", "E", "F")
	s, err := Compute(log, []string{"B", "E"}, commitIn(log, "C"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Block is anchor, then pre-anchor movers, then post-anchor movers.
	wantOrder(t, s, "A", "C", "B", "E", "D", "F")
}

func TestCompute_MoveSetOrderIrrelevant(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A", "B", "C", "D", "E")
	orders := [][]string{
		{"A", "E"},
		{"E", "A"},
	}
	for _, ms := range orders {
		s, err := Compute(log, ms, commitIn(log, "C"))
		if err != nil {
			t.Fatalf("Compute(%v): %v", ms, err)
		}
		// Movers always land in log order, never caller order.
		wantOrder(t, s, "B", "C", "A", "E", "D")
	}
}

func TestCompute_MoveSetEntriesAbsentFromLog(t *testing.T) {
	t.Parallel()
	// Hashes in the move set but not the log contribute nothing; the
	// script still covers the whole log.
	log := makeLog(t, "A", "B", "C")
	s, err := Compute(log, []string{"B", "ZZZ"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "A", "C", "B")
}

func TestCompute_SingleCommitLog(t *testing.T) {
	t.Parallel()
	log := makeLog(t, "A")
	s, err := Compute(log, []string{"A"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wantOrder(t, s, "A")
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty move set", func(t *testing.T) {
		t.Parallel()
		log := makeLog(t, "A", "B")
		if _, err := Compute(log, nil, nil); !errors.Is(err, ErrEmptyMoveSet) {
			t.Fatalf("Compute with empty move set: err = %v, want ErrEmptyMoveSet", err)
		}
	})

	t.Run("empty log", func(t *testing.T) {
		t.Parallel()
		if _, err := Compute(nil, []string{"A"}, nil); !errors.Is(err, ErrEmptyLog) {
			t.Fatalf("Compute with empty log: err = %v, want ErrEmptyLog", err)
		}
	})

	t.Run("move set checked before log", func(t *testing.T) {
		t.Parallel()
		if _, err := Compute(nil, nil, nil); !errors.Is(err, ErrEmptyMoveSet) {
			t.Fatalf("Compute with both empty: err = %v, want ErrEmptyMoveSet", err)
		}
	})

	t.Run("anchor missing from log", func(t *testing.T) {
		t.Parallel()
		log := makeLog(t, "A", "B", "C")
		s, err := Compute(log, []string{"A"}, &Commit{Hash: "Z", Summary: "phantom"})
		if s != nil {
			t.Fatalf("expected no script on anchor failure, got %v", s.Hashes())
		}
		var anf *AnchorNotFoundError
		if !errors.As(err, &anf) {
			t.Fatalf("err = %v, want *AnchorNotFoundError", err)
		}
		if anf.Hash != "Z" {
			t.Errorf("AnchorNotFoundError.Hash = %q, want %q", anf.Hash, "Z")
		}
		if !errors.Is(err, ErrAnchorNotFound) {
			t.Errorf("errors.Is(err, ErrAnchorNotFound) = false, want true")
		}
		if !strings.Contains(err.Error(), "Z") {
			t.Errorf("error message %q does not name the missing hash", err)
		}
	})
}

func TestCompute_SummariesCarriedThrough(t *testing.T) {
	t.Parallel()
	log := []Commit{
		{Hash: "bbb", Summary: "add parser"},
		{Hash: "aaa", Summary: "initial import"},
	}
	s, err := Compute(log, []string{"aaa"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, step := range s {
		if step.Op != OpPick {
			t.Errorf("step %s has op %q, want %q", step.Hash, step.Op, OpPick)
		}
	}
	if s[0].Summary != "add parser" || s[1].Summary != "initial import" {
		t.Errorf("summaries not carried through: %+v", s)
	}
}

// Property-style checks over a larger fixed input: conservation, order
// preservation for movers and non-movers, and contiguity of the block.
func TestCompute_Invariants(t *testing.T) {
	t.Parallel()

	oldest := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	log := makeLog(t, oldest...)

	cases := []struct {
		name    string
		moveSet []string
		anchor  string // empty = nil anchor
	}{
		{"tail placement", []string{"C", "F"}, ""},
		{"anchor mid-log", []string{"A", "G"}, "D"},
		{"anchor with all movers before it", []string{"A", "B"}, "H"},
		{"anchor with all movers after it", []string{"G", "H"}, "A"},
		{"adjacent movers", []string{"D", "E"}, "B"},
		{"mover supplied reversed", []string{"G", "A"}, "D"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var anchor *Commit
			if tc.anchor != "" {
				anchor = commitIn(log, tc.anchor)
			}
			s, err := Compute(log, tc.moveSet, anchor)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}

			moving := make(map[string]bool)
			for _, h := range tc.moveSet {
				moving[h] = true
			}

			// Conservation: same multiset of hashes, same length.
			if len(s) != len(log) {
				t.Fatalf("len(script) = %d, want %d", len(s), len(log))
			}
			seen := make(map[string]int)
			for _, step := range s {
				seen[step.Hash]++
			}
			for _, h := range oldest {
				if seen[h] != 1 {
					t.Fatalf("hash %s appears %d times in script, want 1", h, seen[h])
				}
			}

			// Non-mover order preservation (anchor excluded).
			var wantRest, gotRest []string
			for _, h := range oldest {
				if !moving[h] && h != tc.anchor {
					wantRest = append(wantRest, h)
				}
			}
			for _, h := range s.Hashes() {
				if !moving[h] && h != tc.anchor {
					gotRest = append(gotRest, h)
				}
			}
			if strings.Join(gotRest, ",") != strings.Join(wantRest, ",") {
				t.Errorf("non-mover order = %v, want %v", gotRest, wantRest)
			}

			// Mover order preservation.
			var wantMove, gotMove []string
			for _, h := range oldest {
				if moving[h] {
					wantMove = append(wantMove, h)
				}
			}
			for _, h := range s.Hashes() {
				if moving[h] {
					gotMove = append(gotMove, h)
				}
			}
			if strings.Join(gotMove, ",") != strings.Join(wantMove, ",") {
				t.Errorf("mover order = %v, want %v", gotMove, wantMove)
			}

			// Contiguity: movers plus anchor occupy one run, anchor first.
			// With no anchor the run must sit at the very end.
			inBlock := func(h string) bool { return moving[h] || (tc.anchor != "" && h == tc.anchor) }
			hashes := s.Hashes()
			first, last := -1, -1
			for i, h := range hashes {
				if inBlock(h) {
					if first == -1 {
						first = i
					}
					last = i
				}
			}
			for i := first; i <= last; i++ {
				if !inBlock(hashes[i]) {
					t.Fatalf("block not contiguous: %s at %d inside run [%d,%d]", hashes[i], i, first, last)
				}
			}
			if tc.anchor != "" && hashes[first] != tc.anchor {
				t.Errorf("block starts with %s, want anchor %s", hashes[first], tc.anchor)
			}
			if tc.anchor == "" && last != len(hashes)-1 {
				t.Errorf("tail block ends at %d, want %d", last, len(hashes)-1)
			}
		})
	}
}
