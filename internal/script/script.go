// Package script renders computed plans into the todo format consumed by
// the rewrite engine and manages the temp-file hand-off to it.
package script

import (
	"bytes"
	"fmt"

	"github.com/stormvale/regroup/internal/plan"
)

// Render serializes a script as one instruction per line,
// "pick <hash> <summary>", newline-terminated, in exact emission order.
// The engine parses this line by line, so the format and ordering are
// load-bearing.
func Render(s plan.Script) []byte {
	var buf bytes.Buffer
	for _, step := range s {
		fmt.Fprintf(&buf, "%s %s %s\n", step.Op, step.Hash, step.Summary)
	}
	return buf.Bytes()
}
