package script

import (
	"os"
	"strings"
	"testing"

	"github.com/stormvale/regroup/internal/plan"
)

func TestRender(t *testing.T) {
	t.Parallel()

	s := plan.Script{
		{Op: plan.OpPick, Hash: "aaa111", Summary: "initial import"},
		{Op: plan.OpPick, Hash: "bbb222", Summary: "add parser"},
		{Op: plan.OpPick, Hash: "ccc333", Summary: "fix: handle empty input"},
	}
	got := string(Render(s))
	want := "pick aaa111 initial import\n" +
		"pick bbb222 add parser\n" +
		"pick ccc333 fix: handle empty input\n"
	if got != want {
		t.Errorf("Render:\ngot:\n%swant:\n%s", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()
	if got := Render(nil); len(got) != 0 {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestSinkWrite(t *testing.T) {
	t.Parallel()

	sink := &Sink{Dir: t.TempDir()}
	path, release, err := sink.Write([]byte("pick abc test\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	defer release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading script file: %v", err)
	}
	if string(data) != "pick abc test\n" {
		t.Errorf("script file content = %q", data)
	}
	if !strings.Contains(path, "regroup-todo-") {
		t.Errorf("unexpected temp file name %q", path)
	}
}

func TestSinkRelease(t *testing.T) {
	t.Parallel()

	sink := &Sink{Dir: t.TempDir()}
	path, release, err := sink.Write([]byte("pick abc test\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("script file still exists after release: %v", err)
	}
	// Double release is a no-op.
	release()
}
