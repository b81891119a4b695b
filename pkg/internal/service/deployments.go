package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/yeisme/appvault/pkg/configs"
	ctxPkg "github.com/yeisme/appvault/pkg/context"
	"github.com/yeisme/appvault/pkg/internal/model"
	nlog "github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/metrics"
	"github.com/yeisme/appvault/pkg/queue"
)

// StatusNotDeployed 从未部署过的环境在状态聚合中的取值.
const StatusNotDeployed = "not_deployed"

// DeployService 部署状态机：部署记录只追加，"当前"语义通过取代旧行转移，
// 唯一允许的原地修改是 MarkOutcome 把 pending 写成终态.
type DeployService struct {
	db  *gorm.DB
	pub message.Publisher
	cfg configs.DeployConfig
}

// NewDeployService 从 context 获取依赖实例.
func NewDeployService(c context.Context) *DeployService {
	dbc := ctxPkg.GetDBClient(c)
	mqc := ctxPkg.GetMQClient(c)

	if dbc == nil || dbc.DB == nil || mqc == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &DeployService{
		db:  dbc.DB,
		pub: mqc.Publisher(),
		cfg: configs.GetConfig().Deploy,
	}
}

// DeployURL 由 slug 与环境确定性拼出目标 URL：
// production 不带前缀，其余环境使用 "<env>-" 前缀.
func (ds *DeployService) DeployURL(slug string, env model.Environment) string {
	if env == model.EnvProduction {
		return fmt.Sprintf("https://%s.%s", slug, ds.cfg.BaseDomain)
	}

	return fmt.Sprintf("https://%s-%s.%s", env, slug, ds.cfg.BaseDomain)
}

// Deploy 向指定环境发起部署：校验环境与非空文件集，单个事务内取代
// 旧的活跃行并插入 pending 新行，然后向外部构建 worker 发布事件.
func (ds *DeployService) Deploy(ctx context.Context, appID uint, env model.Environment) (*model.Deployment, error) {
	if !env.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEnvironment, env)
	}

	var app model.App
	if err := ds.db.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}

	var fileCount int64
	if err := ds.db.WithContext(ctx).Model(&model.AppFile{}).
		Where("app_id = ?", appID).Count(&fileCount).Error; err != nil {
		return nil, err
	}

	if fileCount == 0 {
		return nil, ErrEmptyApp
	}

	// 部署登记最新快照；尚无快照时 VersionID 置空，由 worker 先打快照
	var latestVersionID uint

	var latest model.AppVersion
	if err := ds.db.WithContext(ctx).
		Where("app_id = ?", appID).Order("id DESC").First(&latest).Error; err == nil {
		latestVersionID = latest.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	deployment := model.Deployment{
		AppID:       appID,
		Environment: env,
		Status:      model.DeployPending,
		URL:         ds.DeployURL(app.Slug, env),
	}

	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Deployment{}).
			Where("app_id = ? AND environment = ? AND is_rollback = ? AND superseded = ?",
				appID, env, false, false).
			Update("superseded", true).Error; err != nil {
			return err
		}

		return tx.Create(&deployment).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.Deployments.WithLabelValues(string(env), "pending").Inc()

	if ds.pub != nil {
		_ = queue.PublishDeployRequested(ds.pub, queue.DeployRequestedPayload{
			Deploy: queue.DeployRef{
				AppID:        appID,
				DeploymentID: deployment.ID,
				VersionID:    latestVersionID,
				Environment:  string(env),
			},
			URL: deployment.URL,
		})
	}

	return &deployment, nil
}

// MarkOutcome 把 pending 部署写入终态，记录完成时间、部署版本与
// 人类可读的错误信息. 这是已有部署行唯一允许的修改.
// 部署行必须属于指定应用，其他应用的行按不存在处理.
func (ds *DeployService) MarkOutcome(ctx context.Context, appID, deploymentID uint, status model.DeployStatus, deployedVersion, errorMessage string) (*model.Deployment, error) {
	if status != model.DeploySuccess && status != model.DeployFailed {
		return nil, fmt.Errorf("%w: outcome must be terminal, got %q", ErrNotPending, status)
	}

	var deployment model.Deployment
	if err := ds.db.WithContext(ctx).
		Where("id = ? AND app_id = ?", deploymentID, appID).
		First(&deployment).Error; err != nil {
		return nil, err
	}

	if deployment.Status != model.DeployPending {
		return nil, fmt.Errorf("%w: deployment %d is %s", ErrNotPending, deploymentID, deployment.Status)
	}

	now := time.Now()
	deployment.Status = status
	deployment.DeployedVersion = deployedVersion
	deployment.ErrorMessage = errorMessage
	deployment.CompletedAt = &now

	if err := ds.db.WithContext(ctx).Save(&deployment).Error; err != nil {
		return nil, err
	}

	metrics.Deployments.WithLabelValues(string(deployment.Environment), string(status)).Inc()

	if ds.pub != nil {
		_ = queue.PublishDeployCompleted(ds.pub, queue.DeployCompletedPayload{
			Deploy: queue.DeployRef{
				AppID:        deployment.AppID,
				DeploymentID: deployment.ID,
				Environment:  string(deployment.Environment),
			},
			Status: string(status),
			Error:  errorMessage,
		})
	}

	return &deployment, nil
}

// Rollback 回退到指定的历史部署：目标必须属于同一应用，且自身不是
// 回滚记录（禁止回滚链）. 创建引用目标、继承其 URL 与版本元数据的
// pending 回滚行；原始行不被改写.
func (ds *DeployService) Rollback(ctx context.Context, appID, targetID uint) (*model.Deployment, error) {
	var target model.Deployment
	if err := ds.db.WithContext(ctx).
		Where("id = ? AND app_id = ?", targetID, appID).
		First(&target).Error; err != nil {
		return nil, err
	}

	if target.IsRollback {
		return nil, fmt.Errorf("%w: deployment %d", ErrRollbackOfRollback, targetID)
	}

	rollback := model.Deployment{
		AppID:           appID,
		Environment:     target.Environment,
		Status:          model.DeployPending,
		URL:             target.URL,
		DeployedVersion: target.DeployedVersion,
		IsRollback:      true,
		RollbackOfID:    &target.ID,
	}
	if err := ds.db.WithContext(ctx).Create(&rollback).Error; err != nil {
		return nil, err
	}

	metrics.Deployments.WithLabelValues(string(target.Environment), "rollback").Inc()

	if ds.pub != nil {
		_ = queue.PublishDeployRolledBack(ds.pub, queue.DeployRolledBackPayload{
			Deploy: queue.DeployRef{
				AppID:        appID,
				DeploymentID: rollback.ID,
				Environment:  string(rollback.Environment),
			},
			FromDeploymentID: target.ID,
		})
	}

	return &rollback, nil
}

// Current 返回环境的当前部署：活跃的非回滚行，或叠加在其上的最新
// 回滚行（回滚不取代原始行，靠显式引用与更大的行号接管语义）.
func (ds *DeployService) Current(ctx context.Context, appID uint, env model.Environment) (*model.Deployment, error) {
	var deployment model.Deployment
	if err := ds.db.WithContext(ctx).
		Where("app_id = ? AND environment = ?", appID, env).
		Where("is_rollback = ? OR superseded = ?", true, false).
		Order("id DESC").
		First(&deployment).Error; err != nil {
		return nil, err
	}

	return &deployment, nil
}

// CurrentStatus 聚合应用在全部环境下的部署状态；
// 从未部署过的环境报告 not_deployed.
func (ds *DeployService) CurrentStatus(ctx context.Context, appID uint) (map[model.Environment]*model.Deployment, error) {
	statuses := make(map[model.Environment]*model.Deployment, len(model.Environments))

	for _, env := range model.Environments {
		deployment, err := ds.Current(ctx, appID, env)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			statuses[env] = nil

			continue
		} else if err != nil {
			return nil, err
		}

		statuses[env] = deployment
	}

	return statuses, nil
}

// History 返回应用全部部署记录，含被取代的历史行，按创建先后倒序.
func (ds *DeployService) History(ctx context.Context, appID uint) ([]model.Deployment, error) {
	var deployments []model.Deployment
	if err := ds.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id DESC").
		Find(&deployments).Error; err != nil {
		return nil, err
	}

	return deployments, nil
}

// ReapStalePending 把超时未完成的 pending 部署标记为失败，
// 带可读错误信息，后续可通过新部署重试. 返回处理条数.
func (ds *DeployService) ReapStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	now := time.Now()

	res := ds.db.WithContext(ctx).Model(&model.Deployment{}).
		Where("status = ? AND created_at < ?", model.DeployPending, cutoff).
		Updates(map[string]any{
			"status":        model.DeployFailed,
			"error_message": fmt.Sprintf("deployment timed out after %s", olderThan),
			"completed_at":  now,
		})

	return res.RowsAffected, res.Error
}
