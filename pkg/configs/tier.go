package configs

import (
	"github.com/spf13/viper"
)

const (
	// DefaultInlineThresholdBytes 小于等于该尺寸的内容只保留数据库内联副本.
	DefaultInlineThresholdBytes = 1 * 1024
	// DefaultHybridThresholdBytes 超过该尺寸的内容迁移为仅对象存储.
	DefaultHybridThresholdBytes = 10 * 1024
	// DefaultCacheTTLSeconds 对象存储读缓存的 TTL（秒），短 TTL，缓存仅为性能优化.
	DefaultCacheTTLSeconds = 60
	// DefaultMigrateConcurrency 批量迁移的并发上限.
	DefaultMigrateConcurrency = 4
)

// TierConfig 内容分层存储策略.
// 内容按字节大小决定物理落点：
//   - size <= inline_threshold_bytes      仅数据库内联
//   - size <= hybrid_threshold_bytes      内联 + 对象存储双写（hybrid）
//   - size >  hybrid_threshold_bytes      仅对象存储
//
// offload_enabled 为总开关；关闭时一切内容保持内联.
type TierConfig struct {
	OffloadEnabled       bool  `mapstructure:"offload_enabled"`
	InlineThresholdBytes int64 `mapstructure:"inline_threshold_bytes" rule:"min=0"`
	HybridThresholdBytes int64 `mapstructure:"hybrid_threshold_bytes" rule:"min=0"`
	CacheTTLSeconds      int   `mapstructure:"cache_ttl_seconds"      rule:"min=0"`
	MigrateConcurrency   int   `mapstructure:"migrate_concurrency"    rule:"min=1,max=64"`
}

// setDefaults 设置分层存储策略的默认值.
func (c *TierConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tier.offload_enabled", true)
	v.SetDefault("tier.inline_threshold_bytes", DefaultInlineThresholdBytes)
	v.SetDefault("tier.hybrid_threshold_bytes", DefaultHybridThresholdBytes)
	v.SetDefault("tier.cache_ttl_seconds", DefaultCacheTTLSeconds)
	v.SetDefault("tier.migrate_concurrency", DefaultMigrateConcurrency)
}
