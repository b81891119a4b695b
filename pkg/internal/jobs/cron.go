// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/appvault/pkg/configs"
	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/storage"
	"github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每天 03:20 清扫快照 blob：按分层阈值把大体积内联副本下沉到对象存储
//   - 每 5 分钟把超时未完成的 pending 部署标记为失败
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	_ = sched.AddCron(JobSnapshotBlobSweep, CronSnapshotBlobSweep, func(ctx context.Context) {
		runSnapshotBlobSweep(ctx)
	}, baseCtx)

	_ = sched.AddCron(JobDeployReapStale, CronDeployReapStale, func(ctx context.Context) {
		runDeployReapStale(ctx)
	}, baseCtx)

	return nil
}

// runSnapshotBlobSweep 下沉超过内联阈值的快照 blob，verify-then-commit.
func runSnapshotBlobSweep(ctx context.Context) {
	l := log.Logger().With().Str("job", JobSnapshotBlobSweep).Logger()

	tier := configs.GetConfig().Tier
	if !tier.OffloadEnabled {
		return
	}

	svc := service.NewVersionService(ctx)

	migrated, err := svc.SweepBlobs(ctx, tier, SweepBatchLimit)
	if err != nil {
		l.Error().Err(err).Msg("snapshot blob sweep failed")

		return
	}

	if migrated > 0 {
		l.Info().Int("migrated", migrated).Msg("snapshot blobs offloaded")
	}
}

// runDeployReapStale 把超时的 pending 部署写成 failed，可由新部署重试.
func runDeployReapStale(ctx context.Context) {
	l := log.Logger().With().Str("job", JobDeployReapStale).Logger()

	timeout := time.Duration(configs.GetConfig().Deploy.PendingTimeoutMinutes) * time.Minute

	svc := service.NewDeployService(ctx)

	reaped, err := svc.ReapStalePending(ctx, timeout)
	if err != nil {
		l.Error().Err(err).Msg("reap stale deployments failed")

		return
	}

	if reaped > 0 {
		l.Info().Int64("reaped", reaped).Dur("timeout", timeout).Msg("stale pending deployments failed")
	}
}
