package configs

import (
	"github.com/spf13/viper"
)

const (
	// DefaultBaseDomain 部署目标 URL 的基础域名.
	DefaultBaseDomain = "appvault.dev"
	// DefaultPendingTimeoutMinutes pending 部署超过该时长会被后台任务标记为失败.
	DefaultPendingTimeoutMinutes = 15
)

// DeployConfig 部署环境配置.
// 目标 URL 由环境前缀 + 应用 slug + 基础域名确定性拼出，
// production 不带前缀，preview/staging 使用 "<env>-" 前缀.
type DeployConfig struct {
	BaseDomain            string `mapstructure:"base_domain"             rule:"hostname"`
	PendingTimeoutMinutes int    `mapstructure:"pending_timeout_minutes" rule:"min=1"`
}

// setDefaults 设置部署配置的默认值.
func (c *DeployConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("deploy.base_domain", DefaultBaseDomain)
	v.SetDefault("deploy.pending_timeout_minutes", DefaultPendingTimeoutMinutes)
}
