package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/queue"
)

// newTestVersion 组装接内存依赖的 VersionService 及其底层 ContentService.
func newTestVersion(t *testing.T) (*VersionService, *ContentService, *capturedPublisher) {
	t.Helper()

	cs, _, pub := newTestContent(t)
	vs := &VersionService{db: cs.db, content: cs, pub: pub}

	return vs, cs, pub
}

func TestSnapshotStartsAtDefaultVersion(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "index.html", []byte("<html>"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if v.Version != DefaultFirstVersion {
		t.Fatalf("version = %s, want %s", v.Version, DefaultFirstVersion)
	}

	if v.FilesCount != 1 {
		t.Fatalf("files count = %d, want 1", v.FilesCount)
	}
}

func TestSnapshotVersionsAreMonotonic(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	seen := make(map[string]bool)

	for i := range 5 {
		if _, err := cs.Write(ctx, app.ID, "index.html", fmt.Appendf(nil, "rev %d", i), ""); err != nil {
			t.Fatalf("write: %v", err)
		}

		v, err := vs.Snapshot(ctx, app.ID, "")
		if err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}

		if seen[v.Version] {
			t.Fatalf("duplicate version %s", v.Version)
		}

		seen[v.Version] = true
	}

	versions, err := vs.List(ctx, app.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(versions) != 5 {
		t.Fatalf("got %d versions, want 5", len(versions))
	}

	if versions[0].Version != "1.0.4" {
		t.Fatalf("latest = %s, want 1.0.4", versions[0].Version)
	}
}

func TestNextVersion(t *testing.T) {
	cases := []struct{ prev, want string }{
		{"", "1.0.0"},
		{"1.0.0", "1.0.1"},
		{"1.0.9", "1.0.10"},
		{"2.5", "2.6"},
		{"3", "4"},
		{"1.0.beta", "1.0.beta.1"},
	}

	for _, c := range cases {
		if got := nextVersion(c.prev); got != c.want {
			t.Errorf("nextVersion(%q) = %q, want %q", c.prev, got, c.want)
		}
	}
}

func TestSnapshotClassifiesActions(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("one"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := vs.Snapshot(ctx, app.ID, ""); err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("two"), ""); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "b.txt", []byte("new"), ""); err != nil {
		t.Fatalf("write new: %v", err)
	}

	v2, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	loaded, err := vs.GetByVersion(ctx, app.ID, v2.Version)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	actions := make(map[string]model.FileAction)
	for _, f := range loaded.Files {
		actions[f.Path] = f.Action
	}

	if actions["a.txt"] != model.ActionUpdated {
		t.Fatalf("a.txt action = %s, want updated", actions["a.txt"])
	}

	if actions["b.txt"] != model.ActionCreated {
		t.Fatalf("b.txt action = %s, want created", actions["b.txt"])
	}
}

func TestSnapshotRecordsDeletions(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "gone.txt", []byte("bye"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := vs.Snapshot(ctx, app.ID, ""); err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}

	if err := cs.Delete(ctx, app.ID, "gone.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	v2, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	loaded, err := vs.GetByVersion(ctx, app.ID, v2.Version)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if len(loaded.Files) != 1 || loaded.Files[0].Action != model.ActionDeleted {
		t.Fatalf("expected single deleted record, got %+v", loaded.Files)
	}

	if loaded.FilesCount != 0 {
		t.Fatalf("files count = %d, want 0", loaded.FilesCount)
	}
}

func TestRestoreCreatesNewRestoredSnapshot(t *testing.T) {
	vs, cs, pub := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("v1 content"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v1, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("v2 content"), ""); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, err := vs.Snapshot(ctx, app.ID, ""); err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}

	newVersion, restored, err := vs.Restore(ctx, app.ID, v1.Version)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored != 1 {
		t.Fatalf("restored = %d, want 1", restored)
	}

	// 历史只追加：恢复产生第三个快照而不是改写 v1
	if newVersion.Version != "1.0.2" {
		t.Fatalf("new version = %s, want 1.0.2", newVersion.Version)
	}

	data, _, err := cs.Read(ctx, app.ID, "a.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(data) != "v1 content" {
		t.Fatalf("workspace = %q, want v1 content", data)
	}

	loaded, err := vs.GetByVersion(ctx, app.ID, newVersion.Version)
	if err != nil {
		t.Fatalf("get restored snapshot: %v", err)
	}

	if loaded.Files[0].Action != model.ActionRestored {
		t.Fatalf("action = %s, want restored", loaded.Files[0].Action)
	}

	if n := pub.published(queue.TopicVersionRestored); n != 1 {
		t.Fatalf("version restored events = %d, want 1", n)
	}
}

func TestDeterministicDisplayName(t *testing.T) {
	cases := []struct {
		changes []Change
		want    string
	}{
		{[]Change{{Path: "index.html", Action: model.ActionCreated}}, "Creating index.html"},
		{[]Change{{Path: "app.js", Action: model.ActionUpdated}}, "Updating app.js"},
		{[]Change{{Path: "old.css", Action: model.ActionDeleted}}, "Deleting old.css"},
		{[]Change{{Action: model.ActionUpdated}, {Action: model.ActionUpdated}, {Action: model.ActionCreated}}, "Update 3 files"},
	}

	for _, c := range cases {
		if got := deterministicName(c.changes); got != c.want {
			t.Errorf("deterministicName = %q, want %q", got, c.want)
		}
	}
}

type failingNamer struct{}

func (failingNamer) Name([]Change) (string, error) { return "", errors.New("model unavailable") }

func TestDisplayNameFallsBackWhenNamerFails(t *testing.T) {
	vs := &VersionService{namer: failingNamer{}}

	changes := []Change{{Path: "index.html", Action: model.ActionCreated}}
	if got := vs.displayName("", changes); got != "Creating index.html" {
		t.Fatalf("display name = %q, want deterministic fallback", got)
	}

	if got := vs.displayName("user label", changes); got != "user label" {
		t.Fatalf("display name = %q, want user label", got)
	}
}

func TestSweepBlobsMigratesLargeSnapshotFiles(t *testing.T) {
	vs, cs, _ := newTestVersion(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	small := []byte("tiny")
	large := make([]byte, 5*1024)

	for i := range large {
		large[i] = byte('a' + i%26)
	}

	if _, err := cs.Write(ctx, app.ID, "small.txt", small, ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "large.txt", large, ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, err := vs.Snapshot(ctx, app.ID, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	migrated, err := vs.SweepBlobs(ctx, testTier(), 100)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if migrated != 1 {
		t.Fatalf("migrated = %d, want 1 (only the large blob)", migrated)
	}

	loaded, err := vs.GetByVersion(ctx, app.ID, v.Version)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var swept *model.AppVersionFile

	for i, f := range loaded.Files {
		switch f.Path {
		case "small.txt":
			if f.Location != model.LocationInline {
				t.Fatalf("small blob moved to %s", f.Location)
			}
		case "large.txt":
			if f.Location != model.LocationHybrid || f.ObjectKey == "" {
				t.Fatalf("large blob not offloaded: %+v", f)
			}

			swept = &loaded.Files[i]
		}
	}

	// 下沉后快照内容必须原样可读
	data, err := vs.versionFileContent(ctx, swept)
	if err != nil {
		t.Fatalf("read swept blob: %v", err)
	}

	if string(data) != string(large) {
		t.Fatal("swept blob content changed")
	}
}
