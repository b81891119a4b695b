package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/types"
	"github.com/yeisme/appvault/pkg/queue"
)

func TestWriteSmallContentStaysInline(t *testing.T) {
	cs, blobs, pub := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	data := bytes.Repeat([]byte("a"), 500)

	file, err := cs.Write(ctx, app.ID, "index.html", data, "text/html")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if file.Location != model.LocationInline {
		t.Fatalf("location = %s, want inline", file.Location)
	}

	sum := sha256.Sum256(data)
	if file.ContentHash != hex.EncodeToString(sum[:]) {
		t.Fatalf("content hash mismatch: %s", file.ContentHash)
	}

	if file.SizeBytes != 500 {
		t.Fatalf("size = %d, want 500", file.SizeBytes)
	}

	if blobs.len() != 0 {
		t.Fatalf("small write must not touch object store, got %d objects", blobs.len())
	}

	if n := pub.published(queue.TopicContentMigrateRequested); n != 0 {
		t.Fatalf("small write must not request migration, got %d events", n)
	}
}

func TestWriteEmptyContentRejected(t *testing.T) {
	cs, _, _ := newTestContent(t)
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(context.Background(), app.ID, "index.html", nil, ""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
}

func TestWriteLargeContentRequestsMigration(t *testing.T) {
	cs, _, pub := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	data := bytes.Repeat([]byte("x"), 15*1024)

	file, err := cs.Write(ctx, app.ID, "bundle.js", data, "")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	// 写入先落内联，下沉走显式事件
	if file.Location != model.LocationInline {
		t.Fatalf("location = %s, want inline before migration", file.Location)
	}

	if n := pub.published(queue.TopicContentMigrateRequested); n != 1 {
		t.Fatalf("migrate requested events = %d, want 1", n)
	}
}

func TestWriteOffloadDisabledNeverRequestsMigration(t *testing.T) {
	cs, _, pub := newTestContent(t)
	cs.tier.OffloadEnabled = false
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(context.Background(), app.ID, "bundle.js", bytes.Repeat([]byte("x"), 15*1024), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if n := pub.published(queue.TopicContentMigrateRequested); n != 0 {
		t.Fatalf("offload disabled but %d migrate events published", n)
	}
}

func TestTargetLocationPolicy(t *testing.T) {
	tier := testTier()

	cases := []struct {
		size int64
		want model.ContentLocation
	}{
		{500, model.LocationInline},
		{1024, model.LocationInline},
		{1025, model.LocationHybrid},
		{10 * 1024, model.LocationHybrid},
		{10*1024 + 1, model.LocationObject},
	}

	for _, c := range cases {
		if got := TargetLocation(tier, c.size); got != c.want {
			t.Errorf("TargetLocation(%d) = %s, want %s", c.size, got, c.want)
		}
	}

	disabled := configs.TierConfig{OffloadEnabled: false}
	if got := TargetLocation(disabled, 1<<20); got != model.LocationInline {
		t.Errorf("offload disabled: got %s, want inline", got)
	}
}

func TestMigrationRoundTripPreservesBytes(t *testing.T) {
	cs, _, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	original := bytes.Repeat([]byte("roundtrip"), 2000)
	if _, err := cs.Write(ctx, app.ID, "data.bin", original, ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, target := range []model.ContentLocation{
		model.LocationHybrid, model.LocationObject, model.LocationInline,
	} {
		file, err := cs.MigrateToLocation(ctx, app.ID, "data.bin", target)
		if err != nil {
			t.Fatalf("migrate to %s: %v", target, err)
		}

		if file.Location != target {
			t.Fatalf("location = %s, want %s", file.Location, target)
		}

		data, _, err := cs.Read(ctx, app.ID, "data.bin")
		if err != nil {
			t.Fatalf("read at %s: %v", target, err)
		}

		if !bytes.Equal(data, original) {
			t.Fatalf("content corrupted at %s", target)
		}
	}

	// 回到内联后对象副本与键都应清掉
	file, err := cs.Get(ctx, app.ID, "data.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if file.ObjectKey != "" {
		t.Fatalf("object key not cleared after migrating back to inline")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	cs, blobs, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("hello"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationHybrid); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	before := blobs.len()

	file, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationHybrid)
	if err != nil {
		t.Fatalf("repeat migrate: %v", err)
	}

	if file.Location != model.LocationHybrid || blobs.len() != before {
		t.Fatalf("repeated migration must be a no-op")
	}
}

func TestMigratePutFailureKeepsInlineState(t *testing.T) {
	cs, blobs, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("precious"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	blobs.failPut = true

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationObject); err == nil {
		t.Fatal("migrate with failing object store must error")
	}

	file, err := cs.Get(ctx, app.ID, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if file.Location != model.LocationInline || file.Content != "precious" || file.ObjectKey != "" {
		t.Fatalf("failed migration must leave pre-migration state, got %+v", file)
	}
}

func TestReadHybridFallsBackToInline(t *testing.T) {
	cs, blobs, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("fallback"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationHybrid); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	blobs.failGet = true

	data, _, err := cs.Read(ctx, app.ID, "a.txt")
	if err != nil {
		t.Fatalf("hybrid read with dead object store: %v", err)
	}

	if string(data) != "fallback" {
		t.Fatalf("data = %q, want inline fallback", data)
	}
}

func TestReadObjectOnlyFailureReturnsFetchError(t *testing.T) {
	cs, blobs, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("remote-only"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationObject); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	blobs.failGet = true

	if _, _, err := cs.Read(ctx, app.ID, "a.txt"); !errors.Is(err, ErrObjectFetch) {
		t.Fatalf("err = %v, want ErrObjectFetch", err)
	}
}

func TestReadInvalidLocationIsIntegrityError(t *testing.T) {
	cs, _, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("x"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := cs.db.Model(&model.AppFile{}).
		Where("app_id = ?", app.ID).
		Update("location", "mixed").Error; err != nil {
		t.Fatalf("corrupt location: %v", err)
	}

	if _, _, err := cs.Read(ctx, app.ID, "a.txt"); !errors.Is(err, ErrContentMissing) {
		t.Fatalf("err = %v, want ErrContentMissing for unknown location", err)
	}
}

func TestMigrateBatchIsolatesFailures(t *testing.T) {
	cs, _, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "ok.txt", []byte("fine"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := cs.MigrateBatch(ctx, app.ID, []types.MigrateFileRequest{
		{Path: "ok.txt", Location: "hybrid"},
		{Path: "missing.txt", Location: "hybrid"},
		{Path: "ok.txt", Location: "bogus"},
	})

	if resp.Succeeded != 1 || resp.Failed != 2 {
		t.Fatalf("succeeded=%d failed=%d, want 1/2", resp.Succeeded, resp.Failed)
	}

	if !resp.Results[0].Success || resp.Results[0].Location != "hybrid" {
		t.Fatalf("first item should succeed: %+v", resp.Results[0])
	}

	if resp.Results[1].Success || resp.Results[1].Error == "" {
		t.Fatalf("missing file must report failure: %+v", resp.Results[1])
	}

	if resp.Results[2].Success || !strings.Contains(resp.Results[2].Error, "invalid storage location") {
		t.Fatalf("bogus target must report validation failure: %+v", resp.Results[2])
	}
}

func TestDeleteRemovesRecordAndBlob(t *testing.T) {
	cs, blobs, _ := newTestContent(t)
	ctx := context.Background()
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("bye"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationObject); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := cs.Delete(ctx, app.ID, "a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := cs.Get(ctx, app.ID, "a.txt"); err == nil {
		t.Fatal("file record still present after delete")
	}

	if blobs.len() != 0 {
		t.Fatalf("blob not cleaned up, %d left", blobs.len())
	}
}
