package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/yeisme/appvault/pkg/cache"
	"github.com/yeisme/appvault/pkg/configs"
	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/model"
	nlog "github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/metrics"
	"github.com/yeisme/appvault/pkg/queue"
)

// BlobStore 是内容服务需要的对象存储能力子集，s3.Client 实现该接口.
type BlobStore interface {
	PutBlob(ctx context.Context, objectKey string, data []byte) error
	GetBlob(ctx context.Context, objectKey string) ([]byte, error)
	RemoveBlob(ctx context.Context, objectKey string) error
}

// ContentService 负责文件内容的分层读写与迁移.
// 缓存只是性能优化，任何缓存失效都不影响正确性.
type ContentService struct {
	db      *gorm.DB
	blobs   BlobStore
	cache   *cache.Cache
	pub     message.Publisher
	tier    configs.TierConfig
	breaker *gobreaker.CircuitBreaker
}

// NewContentService 从 context 获取依赖实例.
func NewContentService(c context.Context) *ContentService {
	dbc := ctxPkg.GetDBClient(c)
	s3c := ctxPkg.GetS3Client(c)
	kvc := ctxPkg.GetKVClient(c)
	mqc := ctxPkg.GetMQClient(c)

	// 为了安全起见，应该直接 panic 而不是返回 nil，依赖此服务就不需要再检查
	if dbc == nil || dbc.DB == nil || s3c == nil || s3c.Client == nil || mqc == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	var blobCache *cache.Cache
	if kvc != nil {
		blobCache = cache.NewCache(kvc)
	}

	return &ContentService{
		db:      dbc.DB,
		blobs:   s3c,
		cache:   blobCache,
		pub:     mqc.Publisher(),
		tier:    configs.GetConfig().Tier,
		breaker: newBlobBreaker(),
	}
}

// newBlobBreaker 对象存储读取的熔断器：远端持续不可用时快速失败，
// hybrid 层仍可走内联回退.
func newBlobBreaker() *gobreaker.CircuitBreaker {
	const minRequests = 5

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "blob-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= minRequests && counts.ConsecutiveFailures >= minRequests
		},
	})
}

// Get 按 (appID, path) 加载文件记录.
func (cs *ContentService) Get(ctx context.Context, appID uint, path string) (*model.AppFile, error) {
	var file model.AppFile
	if err := cs.db.WithContext(ctx).
		Where("app_id = ? AND path = ?", appID, path).
		First(&file).Error; err != nil {
		return nil, err
	}

	return &file, nil
}

// List 返回应用的全部文件元数据，按路径排序.
func (cs *ContentService) List(ctx context.Context, appID uint) ([]model.AppFile, error) {
	var files []model.AppFile
	if err := cs.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("path").
		Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}

// Write 写入文件内容. 空内容被显式拒绝（清空内容必须走 Delete）.
// 内容总是先落内联层并清除过期对象键；当分层策略要求下沉时，
// 显式发布迁移事件交由后台消费者处理，不做任何隐式副作用.
func (cs *ContentService) Write(ctx context.Context, appID uint, path string, data []byte, contentType string) (*model.AppFile, error) {
	if len(data) == 0 {
		return nil, ErrEmptyContent
	}

	file, err := cs.Get(ctx, appID, path)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		file = &model.AppFile{AppID: appID, Path: path}
	} else if err != nil {
		return nil, err
	}

	staleKey := file.ObjectKey

	file.Content = string(data)
	file.ObjectKey = ""
	file.Location = model.LocationInline
	file.ContentHash = hashContent(data)
	file.SizeBytes = int64(len(data))

	if contentType != "" {
		file.ContentType = contentType
	}

	if err := cs.db.WithContext(ctx).Save(file).Error; err != nil {
		return nil, err
	}

	// 缓存失效与旧对象清理都是 best-effort
	if staleKey != "" {
		cs.invalidate(ctx, staleKey)
		_ = cs.blobs.RemoveBlob(ctx, staleKey)
	}

	metrics.ContentWrites.WithLabelValues(string(model.LocationInline)).Inc()

	cs.requestOffload(ctx, file)

	return file, nil
}

// requestOffload 按分层策略发布迁移事件.
func (cs *ContentService) requestOffload(ctx context.Context, file *model.AppFile) {
	target := TargetLocation(cs.tier, file.SizeBytes)
	if target == model.LocationInline || cs.pub == nil {
		return
	}

	err := queue.PublishContentMigrateRequested(cs.pub, queue.ContentMigratePayload{
		File: queue.FileRef{
			AppID:       file.AppID,
			Path:        file.Path,
			ContentHash: file.ContentHash,
			SizeBytes:   file.SizeBytes,
		},
		Reason: "tier-policy",
	})
	if err != nil {
		// 发布失败只影响下沉时机，内联副本仍然完整
		nlog.Logger().Warn().Err(err).
			Uint("app_id", file.AppID).Str("path", file.Path).
			Msg("publish content migrate event failed")
	}
}

// Read 按存储位置穷尽分支读取内容：
//   - inline: 直接返回内联字节
//   - object: 先查短 TTL 读缓存，未命中走对象存储，失败返回取数错误
//   - hybrid: 对象存储优先，取数失败回退内联副本
//
// 任何层级都没有内容视为完整性错误，绝不返回空字节.
func (cs *ContentService) Read(ctx context.Context, appID uint, path string) ([]byte, *model.AppFile, error) {
	file, err := cs.Get(ctx, appID, path)
	if err != nil {
		return nil, nil, err
	}

	data, err := cs.readContent(ctx, file)
	if err != nil {
		return nil, file, err
	}

	return data, file, nil
}

// readContent 对已加载的文件记录执行分层读取.
func (cs *ContentService) readContent(ctx context.Context, file *model.AppFile) ([]byte, error) {
	switch file.Location {
	case model.LocationInline:
		if file.Content == "" {
			return nil, fmt.Errorf("%w: app %d path %s", ErrContentMissing, file.AppID, file.Path)
		}

		metrics.ContentReads.WithLabelValues(string(file.Location), "none").Inc()

		return []byte(file.Content), nil

	case model.LocationObject:
		if file.ObjectKey == "" {
			return nil, fmt.Errorf("%w: app %d path %s", ErrContentMissing, file.AppID, file.Path)
		}

		return cs.readObject(ctx, file)

	case model.LocationHybrid:
		if file.ObjectKey != "" {
			if data, err := cs.readObject(ctx, file); err == nil {
				return data, nil
			}
		}

		if file.Content == "" {
			return nil, fmt.Errorf("%w: app %d path %s", ErrObjectFetch, file.AppID, file.Path)
		}

		metrics.ContentReads.WithLabelValues(string(file.Location), "fallback").Inc()

		return []byte(file.Content), nil

	default:
		return nil, fmt.Errorf("%w: app %d path %s location %q", ErrContentMissing, file.AppID, file.Path, file.Location)
	}
}

// readObject 从缓存或对象存储读取，命中后回填短 TTL 缓存.
func (cs *ContentService) readObject(ctx context.Context, file *model.AppFile) ([]byte, error) {
	key := blobCacheKey(file.ObjectKey)

	if cs.cache != nil {
		if data, err := cache.Get[[]byte](ctx, cs.cache, key); err == nil {
			metrics.ContentReads.WithLabelValues(string(file.Location), "hit").Inc()

			return data, nil
		}
	}

	data, err := cs.fetchBlob(ctx, file.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrObjectFetch, file.ObjectKey, err)
	}

	if cs.cache != nil {
		ttl := time.Duration(cs.tier.CacheTTLSeconds) * time.Second
		_ = cache.Set(ctx, cs.cache, key, data, ttl)
	}

	metrics.ContentReads.WithLabelValues(string(file.Location), "miss").Inc()

	return data, nil
}

// fetchBlob 经过熔断器的对象存储读取.
func (cs *ContentService) fetchBlob(ctx context.Context, objectKey string) ([]byte, error) {
	res, err := cs.breaker.Execute(func() (any, error) {
		return cs.blobs.GetBlob(ctx, objectKey)
	})
	if err != nil {
		return nil, err
	}

	data, _ := res.([]byte)

	return data, nil
}

// Delete 删除文件记录并 best-effort 清理对象副本与缓存.
// 这是清空内容的唯一途径.
func (cs *ContentService) Delete(ctx context.Context, appID uint, path string) error {
	file, err := cs.Get(ctx, appID, path)
	if err != nil {
		return err
	}

	if err := cs.db.WithContext(ctx).Unscoped().Delete(file).Error; err != nil {
		return err
	}

	if file.ObjectKey != "" {
		cs.invalidate(ctx, file.ObjectKey)
		_ = cs.blobs.RemoveBlob(ctx, file.ObjectKey)
	}

	return nil
}

// invalidate 清除对象键对应的读缓存.
func (cs *ContentService) invalidate(ctx context.Context, objectKey string) {
	if cs.cache == nil {
		return
	}

	_ = cs.cache.Delete(ctx, blobCacheKey(objectKey))
}
