package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeisme/appvault/pkg/configs"
	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/types"
	nlog "github.com/yeisme/appvault/pkg/log"
)

// ShardService 在应用创建时一次性选定数据分片.
// 分片列表来自静态配置，选定结果写入应用记录后不再变更；
// 没有任何进程级可变分片状态.
type ShardService struct {
	db  *gorm.DB
	cfg configs.ShardsConfig
}

// NewShardService 从 context 获取依赖实例.
func NewShardService(c context.Context) *ShardService {
	dbc := ctxPkg.GetDBClient(c)
	if dbc == nil || dbc.DB == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &ShardService{
		db:  dbc.DB,
		cfg: configs.GetConfig().Shards,
	}
}

// Pick 选出负载最低且未满的分片，平手按配置顺序取先者.
// 全部满载时返回 ErrShardsExhausted.
func (ss *ShardService) Pick(ctx context.Context) (string, error) {
	loads, err := ss.Loads(ctx)
	if err != nil {
		return "", err
	}

	best := ""
	bestCount := int64(-1)

	for _, s := range loads {
		if s.Capacity > 0 && s.AppCount >= int64(s.Capacity) {
			continue
		}

		if bestCount < 0 || s.AppCount < bestCount {
			best = s.Name
			bestCount = s.AppCount
		}
	}

	if best == "" {
		return "", ErrShardsExhausted
	}

	return best, nil
}

// Loads 返回每个配置分片的当前应用数.
func (ss *ShardService) Loads(ctx context.Context) ([]types.ShardInfo, error) {
	loads := make([]types.ShardInfo, 0, len(ss.cfg.Shards))

	for _, s := range ss.cfg.Shards {
		var count int64
		if err := ss.db.WithContext(ctx).Model(&model.App{}).
			Where("shard = ?", s.Name).Count(&count).Error; err != nil {
			return nil, err
		}

		loads = append(loads, types.ShardInfo{
			Name:     s.Name,
			Endpoint: s.Endpoint,
			Capacity: s.Capacity,
			AppCount: count,
		})
	}

	return loads, nil
}
