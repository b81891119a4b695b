package service

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/types"
	"github.com/yeisme/appvault/pkg/metrics"
	"github.com/yeisme/appvault/pkg/queue"
)

// MigrateToLocation 将文件迁移到目标存储位置，verify-then-commit：
// 先在目标层建立副本并按 SHA-256 校验，校验通过后才提交位置变更.
// 任何一步失败都保留迁移前状态；文件绝不会落入两层皆空的状态.
// 目标位置与当前位置相同时是幂等 no-op.
func (cs *ContentService) MigrateToLocation(ctx context.Context, appID uint, path string, target model.ContentLocation) (*model.AppFile, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, target)
	}

	file, err := cs.Get(ctx, appID, path)
	if err != nil {
		return nil, err
	}

	if file.Location == target {
		return file, nil
	}

	if err := cs.migrate(ctx, file, target); err != nil {
		metrics.TierMigrations.WithLabelValues("failed").Inc()
		cs.publishMigrateFailed(file, err)

		return nil, err
	}

	metrics.TierMigrations.WithLabelValues("success").Inc()
	cs.publishMigrateCompleted(file)

	return file, nil
}

// migrate 执行具体的层级转换并持久化，调用前已排除同层 no-op.
func (cs *ContentService) migrate(ctx context.Context, file *model.AppFile, target model.ContentLocation) error {
	data, err := cs.readContent(ctx, file)
	if err != nil {
		return err
	}

	switch target {
	case model.LocationHybrid:
		if err := cs.ensureObjectCopy(ctx, file, data); err != nil {
			return err
		}

		file.Content = string(data)
		file.Location = model.LocationHybrid

	case model.LocationObject:
		if err := cs.ensureObjectCopy(ctx, file, data); err != nil {
			return err
		}

		file.Content = ""
		file.Location = model.LocationObject

	case model.LocationInline:
		// 远端取回的内容已在 readContent 拿到，按指纹校验后落内联
		if hashContent(data) != file.ContentHash {
			return fmt.Errorf("%w: app %d path %s", ErrHashMismatch, file.AppID, file.Path)
		}

		staleKey := file.ObjectKey
		file.Content = string(data)
		file.ObjectKey = ""
		file.Location = model.LocationInline

		if err := cs.db.WithContext(ctx).Save(file).Error; err != nil {
			return err
		}

		if staleKey != "" {
			cs.invalidate(ctx, staleKey)
			_ = cs.blobs.RemoveBlob(ctx, staleKey)
		}

		return nil
	}

	return cs.db.WithContext(ctx).Save(file).Error
}

// ensureObjectCopy 确保对象存储中存在一份经过校验的副本.
// 已有对象键时只做远端校验；否则上传到新 ULID 键并回读比对，
// 比对通过后才把键记到文件上.
func (cs *ContentService) ensureObjectCopy(ctx context.Context, file *model.AppFile, data []byte) error {
	if file.ObjectKey != "" {
		remote, err := cs.fetchBlob(ctx, file.ObjectKey)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrObjectFetch, file.ObjectKey, err)
		}

		if !bytes.Equal(remote, data) || hashContent(remote) != file.ContentHash {
			return fmt.Errorf("%w: app %d path %s", ErrHashMismatch, file.AppID, file.Path)
		}

		return nil
	}

	objectKey := newObjectKey(file.AppID)
	if err := cs.blobs.PutBlob(ctx, objectKey, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectFetch, objectKey, err)
	}

	remote, err := cs.fetchBlob(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectFetch, objectKey, err)
	}

	if hashContent(remote) != hashContent(data) {
		_ = cs.blobs.RemoveBlob(ctx, objectKey)

		return fmt.Errorf("%w: app %d path %s", ErrHashMismatch, file.AppID, file.Path)
	}

	file.ObjectKey = objectKey

	return nil
}

// MigrateBatch 批量迁移，errgroup 限制并发、逐文件隔离：
// 单个文件失败不会中止其余文件，结果逐项报告.
func (cs *ContentService) MigrateBatch(ctx context.Context, appID uint, items []types.MigrateFileRequest) types.MigrateBatchResponse {
	results := make([]types.MigrateResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cs.tier.MigrateConcurrency, 1))

	for i, item := range items {
		g.Go(func() error {
			file, err := cs.MigrateToLocation(gctx, appID, item.Path, model.ContentLocation(item.Location))
			if err != nil {
				results[i] = types.MigrateResult{Path: item.Path, Error: err.Error()}

				return nil //nolint:nilerr // 逐文件隔离，错误进结果不进组
			}

			results[i] = types.MigrateResult{Path: item.Path, Location: string(file.Location), Success: true}

			return nil
		})
	}

	_ = g.Wait()

	resp := types.MigrateBatchResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}

	return resp
}

// publishMigrateCompleted 发布迁移完成事件.
func (cs *ContentService) publishMigrateCompleted(file *model.AppFile) {
	if cs.pub == nil {
		return
	}

	_ = queue.PublishContentMigrateCompleted(cs.pub, queue.ContentMigratedPayload{
		File: queue.FileRef{
			AppID:       file.AppID,
			Path:        file.Path,
			ContentHash: file.ContentHash,
			SizeBytes:   file.SizeBytes,
			ObjectKey:   file.ObjectKey,
		},
	})
}

// publishMigrateFailed 发布迁移失败事件，内联副本保留.
func (cs *ContentService) publishMigrateFailed(file *model.AppFile, migrateErr error) {
	if cs.pub == nil {
		return
	}

	_ = queue.PublishContentMigrateFailed(cs.pub, queue.ContentMigrateFailedPayload{
		File: queue.FileRef{
			AppID:       file.AppID,
			Path:        file.Path,
			ContentHash: file.ContentHash,
		},
		Error: migrateErr.Error(),
	})
}
