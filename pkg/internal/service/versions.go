package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
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

// DefaultFirstVersion 应用的首个版本号.
const DefaultFirstVersion = "1.0.0"

// Change 快照中的一项变更. FileID 弱引用当时的活文件，可为空.
type Change struct {
	Path    string
	Action  model.FileAction
	Content string
	FileID  *uint
}

// Namer 为快照生成人类可读标签，best-effort：
// 返回错误或空串时退回确定性命名.
type Namer interface {
	Name(changes []Change) (string, error)
}

// VersionService 负责不可变版本快照的创建、恢复与比较.
type VersionService struct {
	db      *gorm.DB
	content *ContentService
	pub     message.Publisher
	namer   Namer
}

// NewVersionService 从 context 获取依赖实例.
func NewVersionService(c context.Context) *VersionService {
	dbc := ctxPkg.GetDBClient(c)
	mqc := ctxPkg.GetMQClient(c)

	if dbc == nil || dbc.DB == nil || mqc == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &VersionService{
		db:      dbc.DB,
		content: NewContentService(c),
		pub:     mqc.Publisher(),
	}
}

// Snapshot 为应用当前工作区创建一个不可变快照.
// 变更集相对上一个快照计算：新路径为 created、指纹变化为 updated、
// 消失的路径记一条 deleted；未变化的文件也完整入档，保证快照可独立恢复.
func (vs *VersionService) Snapshot(ctx context.Context, appID uint, msg string) (*model.AppVersion, error) {
	files, err := vs.content.List(ctx, appID)
	if err != nil {
		return nil, err
	}

	prev, err := vs.Latest(ctx, appID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prevHashes, err := vs.snapshotHashes(ctx, prev)
	if err != nil {
		return nil, err
	}

	changes := make([]Change, 0, len(files))

	for _, f := range files {
		data, readErr := vs.content.readContent(ctx, &f)
		if readErr != nil {
			return nil, readErr
		}

		action := model.ActionUpdated
		if _, ok := prevHashes[f.Path]; !ok {
			action = model.ActionCreated
		}

		changes = append(changes, Change{Path: f.Path, Action: action, Content: string(data), FileID: &f.ID})
		delete(prevHashes, f.Path)
	}

	// 上个快照存在但当前工作区已消失的路径
	for path := range prevHashes {
		changes = append(changes, Change{Path: path, Action: model.ActionDeleted})
	}

	version, err := vs.createSnapshot(ctx, appID, changes, vs.displayName(msg, changes))
	if err != nil {
		return nil, err
	}

	if vs.pub != nil {
		_ = queue.PublishVersionCreated(vs.pub, queue.VersionCreatedPayload{
			AppID:     appID,
			VersionID: version.ID,
			Version:   version.Version,
			FileCount: version.FilesCount,
			Message:   msg,
		})
	}

	return version, nil
}

// createSnapshot 在单个事务内分配版本号并落库.
// 事务先写应用行以串行化同应用的并发快照，(app_id, version) 唯一索引
// 兜底残余竞态；版本号解析上一个点分号并递增最后一段.
func (vs *VersionService) createSnapshot(ctx context.Context, appID uint, changes []Change, displayName string) (*model.AppVersion, error) {
	var version *model.AppVersion

	err := vs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.App{}).Where("id = ?", appID).Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var last model.AppVersion

		next := DefaultFirstVersion
		if err := tx.Where("app_id = ?", appID).Order("id DESC").First(&last).Error; err == nil {
			next = nextVersion(last.Version)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		filesCount := 0

		for _, ch := range changes {
			if ch.Action != model.ActionDeleted {
				filesCount++
			}
		}

		v := model.AppVersion{
			AppID:       appID,
			Version:     next,
			DisplayName: displayName,
			FilesCount:  filesCount,
		}
		if err := tx.Create(&v).Error; err != nil {
			return err
		}

		for _, ch := range changes {
			vf := model.AppVersionFile{
				VersionID:   v.ID,
				FileID:      ch.FileID,
				Path:        ch.Path,
				Action:      ch.Action,
				Content:     ch.Content,
				Location:    model.LocationInline,
				ContentHash: hashContent([]byte(ch.Content)),
				SizeBytes:   int64(len(ch.Content)),
			}
			if ch.Action == model.ActionDeleted {
				vf.Content = ""
				vf.ContentHash = ""
				vf.SizeBytes = 0
			}

			if err := tx.Create(&vf).Error; err != nil {
				return err
			}
		}

		version = &v

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SnapshotsCreated.Inc()

	return version, nil
}

// nextVersion 递增点分版本号的最后一段；段不可解析时追加 ".1".
func nextVersion(prev string) string {
	if prev == "" {
		return DefaultFirstVersion
	}

	parts := strings.Split(prev, ".")

	last, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return prev + ".1"
	}

	parts[len(parts)-1] = strconv.Itoa(last + 1)

	return strings.Join(parts, ".")
}

// displayName 生成快照展示名：优先用户说明，其次可插拔 Namer，
// 最后退回由变更集确定性生成的标签.
func (vs *VersionService) displayName(msg string, changes []Change) string {
	if msg != "" {
		return msg
	}

	if vs.namer != nil {
		if name, err := vs.namer.Name(changes); err == nil && name != "" {
			return name
		}
	}

	return deterministicName(changes)
}

// deterministicName 由变更集生成确定性标签.
func deterministicName(changes []Change) string {
	if len(changes) == 1 {
		ch := changes[0]
		switch ch.Action {
		case model.ActionCreated:
			return "Creating " + ch.Path
		case model.ActionDeleted:
			return "Deleting " + ch.Path
		case model.ActionRestored:
			return "Restoring " + ch.Path
		case model.ActionUpdated:
			return "Updating " + ch.Path
		}
	}

	return fmt.Sprintf("Update %d files", len(changes))
}

// Latest 返回应用最新的快照.
func (vs *VersionService) Latest(ctx context.Context, appID uint) (*model.AppVersion, error) {
	var v model.AppVersion
	if err := vs.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id DESC").
		First(&v).Error; err != nil {
		return nil, err
	}

	return &v, nil
}

// List 返回应用的快照列表，按创建先后倒序.
func (vs *VersionService) List(ctx context.Context, appID uint) ([]model.AppVersion, error) {
	var versions []model.AppVersion
	if err := vs.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}

	return versions, nil
}

// GetByVersion 按版本号加载快照及其文件.
func (vs *VersionService) GetByVersion(ctx context.Context, appID uint, version string) (*model.AppVersion, error) {
	var v model.AppVersion
	if err := vs.db.WithContext(ctx).
		Preload("Files").
		Where("app_id = ? AND version = ?", appID, version).
		First(&v).Error; err != nil {
		return nil, err
	}

	return &v, nil
}

// snapshotHashes 返回快照中非删除文件的 path → content_hash 映射.
func (vs *VersionService) snapshotHashes(ctx context.Context, v *model.AppVersion) (map[string]string, error) {
	hashes := make(map[string]string)
	if v == nil {
		return hashes, nil
	}

	var files []model.AppVersionFile
	if err := vs.db.WithContext(ctx).
		Where("version_id = ? AND action <> ?", v.ID, model.ActionDeleted).
		Find(&files).Error; err != nil {
		return nil, err
	}

	for _, f := range files {
		hashes[f.Path] = f.ContentHash
	}

	return hashes, nil
}

// versionFileContent 读取快照文件内容，兼容被后台清扫下沉过的 blob.
func (vs *VersionService) versionFileContent(ctx context.Context, vf *model.AppVersionFile) ([]byte, error) {
	switch vf.Location {
	case model.LocationInline, model.LocationHybrid:
		if vf.Content != "" || vf.SizeBytes == 0 {
			return []byte(vf.Content), nil
		}
	case model.LocationObject:
	}

	if vf.ObjectKey == "" {
		return nil, fmt.Errorf("%w: version %d path %s", ErrContentMissing, vf.VersionID, vf.Path)
	}

	data, err := vs.content.fetchBlob(ctx, vf.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrObjectFetch, vf.ObjectKey, err)
	}

	if hashContent(data) != vf.ContentHash {
		return nil, fmt.Errorf("%w: version %d path %s", ErrHashMismatch, vf.VersionID, vf.Path)
	}

	return data, nil
}

// Restore 将工作区恢复到指定快照：逐文件重放非删除记录、删除快照标记
// 删除的路径，然后登记一个全新的 restored 快照. 历史只追加，从不改写.
func (vs *VersionService) Restore(ctx context.Context, appID uint, version string) (*model.AppVersion, int, error) {
	snapshot, err := vs.GetByVersion(ctx, appID, version)
	if err != nil {
		return nil, 0, err
	}

	restored := 0
	changes := make([]Change, 0, len(snapshot.Files))

	for _, vf := range snapshot.Files {
		if vf.Action == model.ActionDeleted {
			if err := vs.content.Delete(ctx, appID, vf.Path); err != nil &&
				!errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, restored, err
			}

			continue
		}

		data, err := vs.versionFileContent(ctx, &vf)
		if err != nil {
			return nil, restored, err
		}

		if _, err := vs.content.Write(ctx, appID, vf.Path, data, ""); err != nil {
			return nil, restored, err
		}

		restored++

		changes = append(changes, Change{Path: vf.Path, Action: model.ActionRestored, Content: string(data)})
	}

	name := fmt.Sprintf("Restore of %s", snapshot.Version)

	newVersion, err := vs.createSnapshot(ctx, appID, changes, name)
	if err != nil {
		return nil, restored, err
	}

	if vs.pub != nil {
		_ = queue.PublishVersionRestored(vs.pub, queue.VersionRestoredPayload{
			AppID:         appID,
			FromVersionID: snapshot.ID,
			NewVersionID:  newVersion.ID,
			NewVersion:    newVersion.Version,
		})
	}

	return newVersion, restored, nil
}

// SweepBlobs 后台清扫：把超过分层阈值的内联快照 blob 迁入对象存储，
// verify-then-commit，单条失败不影响其余. 返回成功迁移的条数.
func (vs *VersionService) SweepBlobs(ctx context.Context, tier configs.TierConfig, limit int) (int, error) {
	if !tier.OffloadEnabled {
		return 0, nil
	}

	var files []model.AppVersionFile
	if err := vs.db.WithContext(ctx).
		Joins("JOIN app_versions ON app_versions.id = app_version_files.version_id").
		Where("app_version_files.location = ? AND app_version_files.size_bytes > ?",
			model.LocationInline, tier.InlineThresholdBytes).
		Limit(limit).
		Find(&files).Error; err != nil {
		return 0, err
	}

	migrated := 0

	for _, vf := range files {
		if err := vs.sweepOne(ctx, &vf, tier); err != nil {
			nlog.Logger().Warn().Err(err).
				Uint("version_id", vf.VersionID).Str("path", vf.Path).
				Msg("snapshot blob sweep failed")
			metrics.TierMigrations.WithLabelValues("failed").Inc()

			continue
		}

		migrated++

		metrics.TierMigrations.WithLabelValues("success").Inc()
	}

	return migrated, nil
}

// sweepOne 迁移单条快照 blob：上传、回读校验、提交.
func (vs *VersionService) sweepOne(ctx context.Context, vf *model.AppVersionFile, tier configs.TierConfig) error {
	var appVersion model.AppVersion
	if err := vs.db.WithContext(ctx).First(&appVersion, vf.VersionID).Error; err != nil {
		return err
	}

	data := []byte(vf.Content)

	objectKey := newObjectKey(appVersion.AppID)
	if err := vs.content.blobs.PutBlob(ctx, objectKey, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectFetch, objectKey, err)
	}

	remote, err := vs.content.fetchBlob(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectFetch, objectKey, err)
	}

	if hashContent(remote) != vf.ContentHash {
		_ = vs.content.blobs.RemoveBlob(ctx, objectKey)

		return fmt.Errorf("%w: version %d path %s", ErrHashMismatch, vf.VersionID, vf.Path)
	}

	target := model.LocationHybrid
	if vf.SizeBytes > tier.HybridThresholdBytes {
		target = model.LocationObject
	}

	updates := map[string]any{"object_key": objectKey, "location": target}
	if target == model.LocationObject {
		updates["content"] = ""
	}

	return vs.db.WithContext(ctx).Model(vf).Updates(updates).Error
}
