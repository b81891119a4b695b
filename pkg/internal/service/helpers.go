package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
)

// hashContent 计算内容的 SHA-256 十六进制指纹.
func hashContent(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// newObjectKey 为对象存储副本生成新键. ULID 保证按时间有序且不可预测，
// 每次迁移生成新键而不是复用旧键，避免覆盖写的竞态.
func newObjectKey(appID uint) string {
	id := ulid.MustNew(ulid.Now(), rand.Reader)

	return fmt.Sprintf("apps/%d/blobs/%s", appID, id.String())
}

// blobCacheKey 对象存储读缓存的键.
func blobCacheKey(objectKey string) string {
	return "blob:" + objectKey
}

// TargetLocation 按分层策略计算给定大小内容应有的存储位置.
// offload 关闭时一切内容保持内联.
func TargetLocation(cfg configs.TierConfig, size int64) model.ContentLocation {
	if !cfg.OffloadEnabled {
		return model.LocationInline
	}

	switch {
	case size <= cfg.InlineThresholdBytes:
		return model.LocationInline
	case size <= cfg.HybridThresholdBytes:
		return model.LocationHybrid
	default:
		return model.LocationObject
	}
}
