package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/queue"
)

// fakeContentStore 内存内容服务，记录迁移调用并可注入失败.
type fakeContentStore struct {
	mu    sync.Mutex
	files map[string]*model.AppFile

	migrated    []model.ContentLocation
	failMigrate bool
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{files: make(map[string]*model.AppFile)}
}

func fileKey(appID uint, path string) string {
	return fmt.Sprintf("%d/%s", appID, path)
}

func (f *fakeContentStore) put(file *model.AppFile) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[fileKey(file.AppID, file.Path)] = file
}

func (f *fakeContentStore) Get(_ context.Context, appID uint, path string) (*model.AppFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[fileKey(appID, path)]
	if !ok {
		return nil, fmt.Errorf("file %d/%s: not found", appID, path)
	}

	return file, nil
}

func (f *fakeContentStore) MigrateToLocation(_ context.Context, appID uint, path string, target model.ContentLocation) (*model.AppFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failMigrate {
		return nil, fmt.Errorf("migrate %d/%s: injected failure", appID, path)
	}

	file := f.files[fileKey(appID, path)]
	file.Location = target
	f.migrated = append(f.migrated, target)

	return file, nil
}

func (f *fakeContentStore) migrations() []model.ContentLocation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]model.ContentLocation(nil), f.migrated...)
}

// testTier 测试用分层策略：1KB 内联上限、10KB 混合上限.
func testTier() configs.TierConfig {
	return configs.TierConfig{
		OffloadEnabled:       true,
		InlineThresholdBytes: 1024,
		HybridThresholdBytes: 10 * 1024,
	}
}

// migrateMsg 构造一条迁移请求消息.
func migrateMsg(t *testing.T, ref queue.FileRef) *message.Message {
	t.Helper()

	msg, err := queue.NewWatermillMessage(queue.TopicContentMigrateRequested, queue.ContentMigratePayload{
		File:   ref,
		Reason: "tier-policy",
	})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	return msg
}

func assertAcked(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Acked():
	default:
		t.Fatal("message must be acked")
	}
}

func TestMigratorOffloadsOversizedFile(t *testing.T) {
	store := newFakeContentStore()
	store.put(&model.AppFile{
		AppID:       1,
		Path:        "dist/bundle.js",
		Location:    model.LocationInline,
		ContentHash: "abc123",
		SizeBytes:   20 * 1024,
	})

	msg := migrateMsg(t, queue.FileRef{AppID: 1, Path: "dist/bundle.js", ContentHash: "abc123", SizeBytes: 20 * 1024})

	m := &Migrator{}
	m.handle(context.Background(), store, testTier(), msg)

	got := store.migrations()
	if len(got) != 1 || got[0] != model.LocationObject {
		t.Fatalf("migrations = %v, want single offload to object", got)
	}

	assertAcked(t, msg)
}

func TestMigratorSkipsWhenContentChanged(t *testing.T) {
	store := newFakeContentStore()
	store.put(&model.AppFile{
		AppID:       1,
		Path:        "index.html",
		Location:    model.LocationInline,
		ContentHash: "rewritten",
		SizeBytes:   20 * 1024,
	})

	// 事件携带的是发布时的指纹，文件随后又被改写
	msg := migrateMsg(t, queue.FileRef{AppID: 1, Path: "index.html", ContentHash: "stale", SizeBytes: 20 * 1024})

	m := &Migrator{}
	m.handle(context.Background(), store, testTier(), msg)

	if got := store.migrations(); len(got) != 0 {
		t.Fatalf("migrations = %v, want none for changed content", got)
	}

	assertAcked(t, msg)
}

func TestMigratorSkipsWhenAlreadyAtTarget(t *testing.T) {
	store := newFakeContentStore()
	store.put(&model.AppFile{
		AppID:       1,
		Path:        "app.css",
		Location:    model.LocationHybrid,
		ContentHash: "abc123",
		SizeBytes:   5 * 1024,
	})

	msg := migrateMsg(t, queue.FileRef{AppID: 1, Path: "app.css", ContentHash: "abc123", SizeBytes: 5 * 1024})

	m := &Migrator{}
	m.handle(context.Background(), store, testTier(), msg)

	if got := store.migrations(); len(got) != 0 {
		t.Fatalf("migrations = %v, want none when already at target tier", got)
	}

	assertAcked(t, msg)
}

func TestMigratorDropsMalformedMessage(t *testing.T) {
	store := newFakeContentStore()
	msg := message.NewMessage(watermill.NewUUID(), []byte("not an envelope"))

	m := &Migrator{}
	m.handle(context.Background(), store, testTier(), msg)

	if got := store.migrations(); len(got) != 0 {
		t.Fatalf("migrations = %v, want none for malformed message", got)
	}

	assertAcked(t, msg)
}

func TestMigratorAcksFailedMigration(t *testing.T) {
	store := newFakeContentStore()
	store.failMigrate = true
	store.put(&model.AppFile{
		AppID:       1,
		Path:        "dist/bundle.js",
		Location:    model.LocationInline,
		ContentHash: "abc123",
		SizeBytes:   20 * 1024,
	})

	msg := migrateMsg(t, queue.FileRef{AppID: 1, Path: "dist/bundle.js", ContentHash: "abc123", SizeBytes: 20 * 1024})

	m := &Migrator{}
	m.handle(context.Background(), store, testTier(), msg)

	// 失败也 Ack：内联副本完整，下一次写入会重新触发迁移
	assertAcked(t, msg)
}
