package configs

import (
	"github.com/spf13/viper"
)

// RateLimitConfig 限流配置.
// Key 维度：global（全局）、ip（按客户端 IP）、header:<name>（按请求头）.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	Key     string  `mapstructure:"key"`
}

// setDefaults 设置限流配置的默认值.
func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("limit.enabled", false)
	v.SetDefault("limit.rps", 50)
	v.SetDefault("limit.burst", 100)
	v.SetDefault("limit.key", "ip")
}
