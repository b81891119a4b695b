package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
)

// newTestDB 打开内存 sqlite 并执行全部迁移.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// fakeBlobStore 内存对象存储，可注入读写失败.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPut bool
	failGet bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) PutBlob(_ context.Context, objectKey string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPut {
		return fmt.Errorf("put blob %s: injected failure", objectKey)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[objectKey] = cp

	return nil
}

func (f *fakeBlobStore) GetBlob(_ context.Context, objectKey string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet {
		return nil, fmt.Errorf("get blob %s: injected failure", objectKey)
	}

	data, ok := f.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("get blob %s: not found", objectKey)
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

func (f *fakeBlobStore) RemoveBlob(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, objectKey)

	return nil
}

func (f *fakeBlobStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.objects)
}

// capturedPublisher 捕获发布消息的假 publisher.
type capturedPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (p *capturedPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range msgs {
		p.topics = append(p.topics, topic)
		p.msgs = append(p.msgs, m)
	}

	return nil
}

func (p *capturedPublisher) Close() error { return nil }

func (p *capturedPublisher) published(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0

	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}

	return n
}

// testTier 测试用分层策略：1KB 内联上限、10KB 混合上限.
func testTier() configs.TierConfig {
	return configs.TierConfig{
		OffloadEnabled:       true,
		InlineThresholdBytes: 1024,
		HybridThresholdBytes: 10 * 1024,
		CacheTTLSeconds:      60,
		MigrateConcurrency:   4,
	}
}

// newTestContent 组装一个接内存依赖的 ContentService.
func newTestContent(t *testing.T) (*ContentService, *fakeBlobStore, *capturedPublisher) {
	t.Helper()

	blobs := newFakeBlobStore()
	pub := &capturedPublisher{}
	cs := &ContentService{
		db:      newTestDB(t),
		blobs:   blobs,
		pub:     pub,
		tier:    testTier(),
		breaker: newBlobBreaker(),
	}

	return cs, blobs, pub
}

// createTestApp 直接落库一个应用.
func createTestApp(t *testing.T, db *gorm.DB, slug string) *model.App {
	t.Helper()

	app := model.App{Slug: slug, Name: slug, Shard: "shard-primary"}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}

	return &app
}
