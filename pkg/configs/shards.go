package configs

import (
	"github.com/spf13/viper"
)

// ShardConfig 单个数据分片的静态描述.
type ShardConfig struct {
	Name     string `mapstructure:"name"     rule:"required"`
	Endpoint string `mapstructure:"endpoint"`
	Capacity int    `mapstructure:"capacity" rule:"min=1"` // 可承载的应用数上限
}

// ShardsConfig 数据分片列表. 应用创建时由 ShardService 一次性选定分片，
// 选定结果写入应用记录后不再变更.
type ShardsConfig struct {
	Shards []ShardConfig `mapstructure:"shards"`
}

// setDefaults 设置分片配置的默认值：单个本地分片.
func (c *ShardsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("shards.shards", []map[string]any{
		{"name": "shard-primary", "endpoint": "", "capacity": 10000},
	})
}
