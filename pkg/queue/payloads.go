package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 应用生命周期领域 --------------------------

// AppCreatedPayload 应用创建完成.
type AppCreatedPayload struct {
	AppID uint   `json:"app_id"`
	Slug  string `json:"slug"`
	Shard string `json:"shard"` // 创建时一次性选定，之后不变
}

// AppDeletedPayload 应用删除.
type AppDeletedPayload struct {
	AppID uint   `json:"app_id"`
	Slug  string `json:"slug"`
}

// -------------------------- 内容分层领域 --------------------------

// FileRef 标识应用工作区中的一个文件及其内容指纹.
type FileRef struct {
	AppID       uint   `json:"app_id"`
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	ObjectKey   string `json:"object_key,omitempty"`
}

// ContentMigratePayload 请求将混合层文件的内联副本清除（内容已在对象存储确认）.
// 消费者必须先比对文件当前 content_hash，内容已变更则放弃本次迁移.
type ContentMigratePayload struct {
	File   FileRef `json:"file"`
	Reason string  `json:"reason,omitempty"` // hybrid-offload / batch / manual
}

// ContentMigratedPayload 迁移完成.
type ContentMigratedPayload struct {
	File FileRef `json:"file"`
}

// ContentMigrateFailedPayload 迁移失败，内联副本保留.
type ContentMigrateFailedPayload struct {
	File  FileRef `json:"file"`
	Error string  `json:"error"`
}

// -------------------------- 版本快照领域 --------------------------

// VersionCreatedPayload 版本快照创建完成.
type VersionCreatedPayload struct {
	AppID     uint   `json:"app_id"`
	VersionID uint   `json:"version_id"`
	Version   string `json:"version"`
	FileCount int    `json:"file_count"`
	Message   string `json:"message,omitempty"`
}

// VersionRestoredPayload 工作区从历史快照恢复，产生新的 restored 快照.
type VersionRestoredPayload struct {
	AppID         uint   `json:"app_id"`
	FromVersionID uint   `json:"from_version_id"`
	NewVersionID  uint   `json:"new_version_id"`
	NewVersion    string `json:"new_version"`
}

// -------------------------- 部署领域 --------------------------

// DeployRef 标识一次部署.
type DeployRef struct {
	AppID        uint   `json:"app_id"`
	DeploymentID uint   `json:"deployment_id"`
	VersionID    uint   `json:"version_id"`
	Environment  string `json:"environment"`
}

// DeployRequestedPayload 部署登记完成（pending）.
type DeployRequestedPayload struct {
	Deploy DeployRef `json:"deploy"`
	URL    string    `json:"url"`
}

// DeployCompletedPayload 部署进入终态.
type DeployCompletedPayload struct {
	Deploy DeployRef `json:"deploy"`
	Status string    `json:"status"` // success / failed
	Error  string    `json:"error,omitempty"`
}

// DeployRolledBackPayload 环境回滚到历史版本.
type DeployRolledBackPayload struct {
	Deploy           DeployRef `json:"deploy"`
	FromDeploymentID uint      `json:"from_deployment_id"`
}
