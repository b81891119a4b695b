// Package worker 实现消息队列消费者：内容分层迁移的后台执行者.
package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/appvault/pkg/configs"
	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/storage"
	"github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/queue"
)

// contentStore 是迁移消费者需要的内容服务能力子集，ContentService 实现它.
type contentStore interface {
	Get(ctx context.Context, appID uint, path string) (*model.AppFile, error)
	MigrateToLocation(ctx context.Context, appID uint, path string, target model.ContentLocation) (*model.AppFile, error)
}

// Migrator 消费 av.content.migrate.requested，把超过内联阈值的文件按
// 分层策略下沉. 消费是幂等的：先比对文件当前指纹，内容已变更则放弃.
type Migrator struct {
	mgr *storage.Manager
}

// NewMigrator 创建迁移消费者.
func NewMigrator(mgr *storage.Manager) *Migrator {
	return &Migrator{mgr: mgr}
}

// Run 订阅迁移主题并阻塞消费，ctx 取消后返回.
func (m *Migrator) Run(ctx context.Context) error {
	baseCtx := ctxPkg.WithStorageManager(ctx, m.mgr)

	msgs, err := m.mgr.GetMQClient().Subscribe(baseCtx, queue.TopicContentMigrateRequested)
	if err != nil {
		return err
	}

	l := log.Logger().With().Str("worker", "content-migrator").Logger()
	l.Info().Str("topic", queue.TopicContentMigrateRequested).Msg("content migrator started")

	svc := service.NewContentService(baseCtx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			m.handle(baseCtx, svc, configs.GetConfig().Tier, msg)
		}
	}
}

// handle 处理单条迁移请求. 消息总是 Ack：失败的迁移会由下一次写入
// 重新触发，重投只会放大无效负载.
func (m *Migrator) handle(ctx context.Context, svc contentStore, tier configs.TierConfig, msg *message.Message) {
	defer msg.Ack()

	l := log.Logger().With().Str("worker", "content-migrator").Logger()

	envelope, err := queue.ParseContentMigrateRequested(msg)
	if err != nil {
		l.Warn().Err(err).Str("msg_id", msg.UUID).Msg("drop malformed migrate request")

		return
	}

	ref := envelope.Payload.File

	file, err := svc.Get(ctx, ref.AppID, ref.Path)
	if err != nil {
		l.Warn().Err(err).Uint("app_id", ref.AppID).Str("path", ref.Path).Msg("file lookup failed")

		return
	}

	// 幂等防护：事件发布后内容又被改写则放弃本次迁移
	if file.ContentHash != ref.ContentHash {
		l.Debug().Uint("app_id", ref.AppID).Str("path", ref.Path).Msg("content changed since request, skipping")

		return
	}

	target := service.TargetLocation(tier, file.SizeBytes)
	if target == file.Location {
		return
	}

	if _, err := svc.MigrateToLocation(ctx, ref.AppID, ref.Path, target); err != nil {
		l.Error().Err(err).
			Uint("app_id", ref.AppID).Str("path", ref.Path).Str("target", string(target)).
			Msg("tier migration failed, inline copy preserved")

		return
	}

	l.Info().
		Uint("app_id", ref.AppID).Str("path", ref.Path).Str("target", string(target)).
		Msg("tier migration completed")
}
