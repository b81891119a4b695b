package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig 监控指标配置.
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RuntimeMetrics bool `mapstructure:"runtime_metrics"`
	Pprof          bool `mapstructure:"pprof"`
}

// setDefaults 设置监控指标配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
}
