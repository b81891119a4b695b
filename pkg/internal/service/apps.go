package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/model"
	nlog "github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/queue"
)

// AppService 应用生命周期管理.
type AppService struct {
	db     *gorm.DB
	blobs  BlobStore
	pub    message.Publisher
	shards *ShardService
}

// NewAppService 从 context 获取依赖实例.
func NewAppService(c context.Context) *AppService {
	dbc := ctxPkg.GetDBClient(c)
	s3c := ctxPkg.GetS3Client(c)
	mqc := ctxPkg.GetMQClient(c)

	if dbc == nil || dbc.DB == nil || s3c == nil || s3c.Client == nil || mqc == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &AppService{
		db:     dbc.DB,
		blobs:  s3c,
		pub:    mqc.Publisher(),
		shards: NewShardService(c),
	}
}

// Create 创建应用：选定分片并落库. slug 格式由 handler 层的 rule 校验，
// 分片名写入后不再变更.
func (as *AppService) Create(ctx context.Context, slug, name string) (*model.App, error) {
	shard, err := as.shards.Pick(ctx)
	if err != nil {
		return nil, err
	}

	app := model.App{Slug: slug, Name: name, Shard: shard}
	if err := as.db.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, err
	}

	if as.pub != nil {
		_ = queue.PublishAppCreated(as.pub, queue.AppCreatedPayload{
			AppID: app.ID,
			Slug:  app.Slug,
			Shard: app.Shard,
		})
	}

	return &app, nil
}

// GetBySlug 按 slug 加载应用.
func (as *AppService) GetBySlug(ctx context.Context, slug string) (*model.App, error) {
	var app model.App
	if err := as.db.WithContext(ctx).Where("slug = ?", slug).First(&app).Error; err != nil {
		return nil, err
	}

	return &app, nil
}

// List 返回全部应用.
func (as *AppService) List(ctx context.Context) ([]model.App, error) {
	var apps []model.App
	if err := as.db.WithContext(ctx).Order("id").Find(&apps).Error; err != nil {
		return nil, err
	}

	return apps, nil
}

// Delete 删除应用并级联清理文件、版本与部署记录，
// 对象存储副本 best-effort 清理.
func (as *AppService) Delete(ctx context.Context, slug string) error {
	app, err := as.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	var objectKeys []string
	if err := as.db.WithContext(ctx).Model(&model.AppFile{}).
		Where("app_id = ? AND object_key <> ''", app.ID).
		Pluck("object_key", &objectKeys).Error; err != nil {
		return err
	}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("app_id = ?", app.ID).Delete(&model.AppFile{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().
			Where("version_id IN (?)", tx.Model(&model.AppVersion{}).Select("id").Where("app_id = ?", app.ID)).
			Delete(&model.AppVersionFile{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("app_id = ?", app.ID).Delete(&model.AppVersion{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("app_id = ?", app.ID).Delete(&model.Deployment{}).Error; err != nil {
			return err
		}

		// 应用行硬删：slug 带唯一索引，软删会占住 slug 阻止重建
		return tx.Unscoped().Delete(app).Error
	})
	if err != nil {
		return err
	}

	for _, key := range objectKeys {
		_ = as.blobs.RemoveBlob(ctx, key)
	}

	if as.pub != nil {
		_ = queue.PublishAppDeleted(as.pub, queue.AppDeletedPayload{AppID: app.ID, Slug: app.Slug})
	}

	return nil
}
