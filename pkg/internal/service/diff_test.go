package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/yeisme/appvault/pkg/internal/types"
)

func TestDiffReportsUpdatedFileWithLineChanges(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("line1\nline2\n"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v1, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("line1\nchanged\nline3\n"), ""); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	v2, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	diff, err := vs.Diff(ctx, app.ID, v1.Version, v2.Version)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	if len(diff.Files) != 1 {
		t.Fatalf("got %d file diffs, want 1", len(diff.Files))
	}

	fd := diff.Files[0]
	if fd.Path != "a.txt" || fd.Status != "modified" {
		t.Fatalf("diff = %+v, want modified a.txt", fd)
	}

	added, removed := 0, 0

	for _, l := range fd.Lines {
		switch l.Type {
		case "added":
			added++
		case "removed":
			removed++
		}
	}

	if added == 0 || removed == 0 {
		t.Fatalf("modified file must report additions and deletions, got +%d -%d", added, removed)
	}
}

func TestDiffClassifiesAddedAndRemoved(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "old.txt", []byte("old\n"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v1, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	if err := cs.Delete(ctx, app.ID, "old.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "new.txt", []byte("new\n"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v2, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	diff, err := vs.Diff(ctx, app.ID, v1.Version, v2.Version)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	status := make(map[string]string)
	for _, fd := range diff.Files {
		status[fd.Path] = fd.Status
	}

	if status["new.txt"] != "added" || status["old.txt"] != "removed" {
		t.Fatalf("status = %v, want new.txt added / old.txt removed", status)
	}
}

func TestDiffIsDeterministic(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	for _, p := range []string{"c.txt", "a.txt", "b.txt"} {
		if _, err := cs.Write(ctx, app.ID, p, []byte(p+" v1\n"), ""); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	v1, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	for _, p := range []string{"a.txt", "b.txt"} {
		if _, err := cs.Write(ctx, app.ID, p, []byte(p+" v2\n"), ""); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
	}

	v2, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	first, err := vs.Diff(ctx, app.ID, v1.Version, v2.Version)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	second, err := vs.Diff(ctx, app.ID, v1.Version, v2.Version)
	if err != nil {
		t.Fatalf("diff again: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("diff output not deterministic")
	}

	// 路径序固定
	var paths []string
	for _, fd := range first.Files {
		paths = append(paths, fd.Path)
	}

	if !reflect.DeepEqual(paths, []string{"a.txt", "b.txt", "c.txt"}) {
		t.Fatalf("paths = %v, want sorted", paths)
	}
}

func TestDiffLinesPositional(t *testing.T) {
	lines := diffLines("a\nb\nc\n", "a\nX\n")

	want := []types.DiffLine{
		{Type: "unchanged", Line: 1, Content: "a"},
		{Type: "removed", Line: 2, Content: "b"},
		{Type: "added", Line: 2, Content: "X"},
		{Type: "removed", Line: 3, Content: "c"},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("diffLines = %+v, want %+v", lines, want)
	}
}

func TestDiffLinesEmptySides(t *testing.T) {
	if got := diffLines("", ""); got != nil {
		t.Fatalf("empty diff = %+v, want nil", got)
	}

	added := diffLines("", "one\ntwo\n")
	if len(added) != 2 || added[0].Type != "added" || added[1].Type != "added" {
		t.Fatalf("created file diff = %+v, want all additions", added)
	}

	removed := diffLines("one\n", "")
	if len(removed) != 1 || removed[0].Type != "removed" {
		t.Fatalf("deleted file diff = %+v, want all deletions", removed)
	}
}
