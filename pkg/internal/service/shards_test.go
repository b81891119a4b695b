package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
)

func testShards() configs.ShardsConfig {
	return configs.ShardsConfig{Shards: []configs.ShardConfig{
		{Name: "shard-a", Capacity: 2},
		{Name: "shard-b", Capacity: 2},
	}}
}

func TestPickLeastLoadedShard(t *testing.T) {
	ss := &ShardService{db: newTestDB(t), cfg: testShards()}
	ctx := context.Background()

	// 空库平手，按配置顺序取先者
	shard, err := ss.Pick(ctx)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}

	if shard != "shard-a" {
		t.Fatalf("shard = %s, want shard-a", shard)
	}

	if err := ss.db.Create(&model.App{Slug: "one", Shard: "shard-a"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	shard, err = ss.Pick(ctx)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}

	if shard != "shard-b" {
		t.Fatalf("shard = %s, want shard-b", shard)
	}
}

func TestPickSkipsFullShards(t *testing.T) {
	ss := &ShardService{db: newTestDB(t), cfg: testShards()}
	ctx := context.Background()

	for _, slug := range []string{"a1", "a2"} {
		if err := ss.db.Create(&model.App{Slug: slug, Shard: "shard-a"}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	shard, err := ss.Pick(ctx)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}

	if shard != "shard-b" {
		t.Fatalf("shard = %s, want shard-b (shard-a is full)", shard)
	}
}

func TestPickAllShardsExhausted(t *testing.T) {
	ss := &ShardService{db: newTestDB(t), cfg: testShards()}
	ctx := context.Background()

	for _, seed := range []struct{ slug, shard string }{
		{"a1", "shard-a"}, {"a2", "shard-a"}, {"b1", "shard-b"}, {"b2", "shard-b"},
	} {
		if err := ss.db.Create(&model.App{Slug: seed.slug, Shard: seed.shard}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if _, err := ss.Pick(ctx); !errors.Is(err, ErrShardsExhausted) {
		t.Fatalf("err = %v, want ErrShardsExhausted", err)
	}
}

func TestAppCreateAssignsImmutableShard(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	pub := &capturedPublisher{}
	as := &AppService{
		db:     db,
		blobs:  blobs,
		pub:    pub,
		shards: &ShardService{db: db, cfg: testShards()},
	}
	ctx := context.Background()

	app, err := as.Create(ctx, "demo", "Demo App")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if app.Shard != "shard-a" {
		t.Fatalf("shard = %s, want shard-a", app.Shard)
	}

	second, err := as.Create(ctx, "other", "")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if second.Shard != "shard-b" {
		t.Fatalf("second shard = %s, want shard-b (least loaded)", second.Shard)
	}

	// slug 唯一
	if _, err := as.Create(ctx, "demo", ""); err == nil {
		t.Fatal("duplicate slug must be rejected")
	}
}

func TestAppDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	pub := &capturedPublisher{}
	as := &AppService{
		db:     db,
		blobs:  blobs,
		pub:    pub,
		shards: &ShardService{db: db, cfg: testShards()},
	}
	cs := &ContentService{db: db, blobs: blobs, pub: pub, tier: testTier(), breaker: newBlobBreaker()}
	ctx := context.Background()

	app, err := as.Create(ctx, "demo", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := cs.Write(ctx, app.ID, "a.txt", []byte("data"), ""); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := cs.MigrateToLocation(ctx, app.ID, "a.txt", model.LocationObject); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := as.Delete(ctx, "demo"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var files int64
	db.Model(&model.AppFile{}).Where("app_id = ?", app.ID).Count(&files)

	if files != 0 {
		t.Fatalf("files left after delete: %d", files)
	}

	if blobs.len() != 0 {
		t.Fatalf("blobs left after delete: %d", blobs.len())
	}

	if _, err := as.GetBySlug(ctx, "demo"); err == nil {
		t.Fatal("app still loadable after delete")
	}

	// slug 在删除后可重新使用
	if _, err := as.Create(ctx, "demo", ""); err != nil {
		t.Fatalf("recreate with released slug: %v", err)
	}
}
