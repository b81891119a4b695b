// Package configs 管理应用程序配置，包括数据库、对象存储、队列、分层存储与部署的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "github.com/yeisme/appvault/pkg/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing tier policy:
//
//	tier := configs.GetConfig().Tier
//	fmt.Println("hybrid threshold:", tier.HybridThresholdBytes)
//
// Example accessing deploy config:
//
//	dep := configs.GetConfig().Deploy
//	fmt.Println("base domain:", dep.BaseDomain)
package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本号，构建时可通过 ldflags 覆盖.
var AppVersion = "dev"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB      DBConfig             `mapstructure:"db"`      // 数据库配置
		S3      S3Config             `mapstructure:"s3"`      // 对象存储配置
		MQ      MQConfig             `mapstructure:"mq"`      // 消息队列配置
		KV      KVConfig             `mapstructure:"kv"`      // 键值缓存配置
		Server  ServerConfig         `mapstructure:"server"`  // 服务器配置
		Log     LogConfig            `mapstructure:"log"`     // 日志配置
		Metrics MetricsConfig        `mapstructure:"metrics"` // 监控指标配置
		Tracing TracingConfig        `mapstructure:"tracing"` // 分布式追踪配置
		Breaker CircuitBreakerConfig `mapstructure:"breaker"` // 熔断配置
		Limit   RateLimitConfig      `mapstructure:"limit"`   // 限流配置
		Tier    TierConfig           `mapstructure:"tier"`    // 内容分层存储策略
		Deploy  DeployConfig         `mapstructure:"deploy"`  // 部署环境配置
		Shards  ShardsConfig         `mapstructure:"shards"`  // 数据分片配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 配置文件缺失不是致命错误，此时使用默认值运行（环境变量仍可覆盖）.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查 path 是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用 SetConfigFile，Viper 会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("APPVAULT")

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig  ServerConfig
		dbConfig      DBConfig
		s3Config      S3Config
		mqConfig      MQConfig
		kvConfig      KVConfig
		logConfig     LogConfig
		metricsConfig MetricsConfig
		tracingConfig TracingConfig
		breakerConfig CircuitBreakerConfig
		limitConfig   RateLimitConfig
		tierConfig    TierConfig
		deployConfig  DeployConfig
		shardsConfig  ShardsConfig
	)

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	mqConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	breakerConfig.setDefaults(v)
	limitConfig.setDefaults(v)
	tierConfig.setDefaults(v)
	deployConfig.setDefaults(v)
	shardsConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
