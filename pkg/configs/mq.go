package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS  MQType = "nats"
	MQTypeRedis MQType = "redis"

	DefaultMQURL         = "localhost:4222"
	DefaultMaxReconnects = 5                // 默认最大重连次数
	DefaultReconnectWait = 5                // 默认重连等待时间（秒）
	DefaultMQClientID    = "appvault-app"   // 默认客户端ID
	DefaultMaxPingsOut   = 3                // 默认最大ping输出次数
	DefaultPingInterval  = 20               // 默认ping间隔（秒）
	DefaultBufferSize    = 32768            // 默认缓冲区大小（32KB）

	// JetStream 流配置常量.

	DefaultStreamMaxMsgs  = 1000000            // 默认流最大消息数
	DefaultStreamMaxBytes = 1024 * 1024 * 1024 // 默认流最大字节数 (1GB)
	DefaultStreamMaxAge   = 24                 // 默认流最大年龄（小时）

	// 消费者配置常量.

	DefaultConsumerAckWait       = 30   // 默认消费者确认等待时间（秒）
	DefaultConsumerMaxDeliver    = 3    // 默认消费者最大投递次数
	DefaultConsumerMaxAckPending = 1000 // 默认消费者最大待确认消息数
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Type          MQType   `mapstructure:"type"           rule:"oneof=nats redis"`
	URL           string   `mapstructure:"url"            rule:"hostname_port"`
	User          string   `mapstructure:"user"`
	Password      string   `mapstructure:"password"`
	ClientID      string   `mapstructure:"client_id"`
	MaxReconnects int      `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int      `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	PingInterval  int      `mapstructure:"ping_interval"  rule:"min=1,max=300"`
	BufferSize    int      `mapstructure:"buffer_size"    rule:"min=1024,max=1048576"`
	EnableMetrics bool     `mapstructure:"enable_metrics"`
	ClusterURLs   []string `mapstructure:"cluster_urls"`

	// NATS JetStream 专属配置.
	JetStreamEnabled       bool   `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool   `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool   `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool   `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string `mapstructure:"jetstream_durable_prefix"`
	StreamName             string `mapstructure:"stream_name"`
	SubjectPrefix          string `mapstructure:"subject_prefix"`
	JWT                    string `mapstructure:"jwt"`
	NKey                   string `mapstructure:"nkey"`
	LoadBalance            bool   `mapstructure:"load_balance"`

	// Redis MQ 配置.
	Redis MQRedisConfig `mapstructure:"redis"`
}

// MQRedisConfig Redis MQ 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeNATS)
	v.SetDefault("mq.url", DefaultMQURL)
	v.SetDefault("mq.user", "")
	v.SetDefault("mq.password", "")
	v.SetDefault("mq.client_id", DefaultMQClientID)
	v.SetDefault("mq.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.enable_metrics", true)
	v.SetDefault("mq.cluster_urls", []string{})

	// NATS 默认值
	v.SetDefault("mq.jetstream_enabled", true)
	v.SetDefault("mq.jetstream_auto_provision", true)
	v.SetDefault("mq.jetstream_track_msg_id", true)
	v.SetDefault("mq.jetstream_ack_async", true)
	v.SetDefault("mq.jetstream_durable_prefix", "appvault-durable")
	v.SetDefault("mq.stream_name", "appvault-stream")
	v.SetDefault("mq.subject_prefix", "appvault.")
	v.SetDefault("mq.jwt", "")
	v.SetDefault("mq.nkey", "")
	v.SetDefault("mq.load_balance", true)

	// Redis 默认值
	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
}
