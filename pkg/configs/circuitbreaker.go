package configs

import (
	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断配置，同时用于 HTTP 中间件与对象存储读路径.
type CircuitBreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half" rule:"min=1"`
	IntervalSeconds   int     `mapstructure:"interval_seconds"     rule:"min=1"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"      rule:"min=1"`
	MinRequests       uint32  `mapstructure:"min_requests"         rule:"min=1"`
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"min=0,max=1"`
}

// setDefaults 设置熔断配置的默认值.
func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests_in_half", 5)
	v.SetDefault("breaker.interval_seconds", 60)
	v.SetDefault("breaker.timeout_seconds", 30)
	v.SetDefault("breaker.min_requests", 10)
	v.SetDefault("breaker.failure_rate", 0.5)
}
