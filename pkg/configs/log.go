package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = "info"             // 默认日志级别
	DefaultLogEnableFile = false              // 默认不写文件
	DefaultLogFilePath   = "logs/appvault.log" // 默认日志文件路径
	DefaultLogMaxSize    = 100                // 单个日志文件最大尺寸（MB）
	DefaultLogMaxBackups = 3                  // 保留的旧日志文件数
	DefaultLogMaxAge     = 28                 // 日志保留天数
	DefaultLogCompress   = true               // 旧日志是否压缩
)

// LogConfig 日志配置.
type LogConfig struct {
	Level      string `mapstructure:"level"       rule:"oneof=trace debug info warn error fatal panic"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"    rule:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age"     rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults 设置日志配置的默认值.
func (c *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
}
