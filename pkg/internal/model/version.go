package model

import (
	"time"

	"gorm.io/gorm"
)

// FileAction 快照中单个文件的动作标签.
type FileAction string

const (
	ActionCreated  FileAction = "created"
	ActionUpdated  FileAction = "updated"
	ActionDeleted  FileAction = "deleted"
	ActionRestored FileAction = "restored"
)

// Valid 检查动作取值是否合法.
func (a FileAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionRestored:
		return true
	}

	return false
}

// AppVersion 应用的不可变版本快照.
// 不变量：版本号（点分格式）在应用内唯一且单调递增；创建后内容不再改写，
// 只有快照 blob 的存储位置可以被后台迁移.
type AppVersion struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// AppID + Version 唯一，唯一索引同时兜底并发分配
	AppID   uint   `gorm:"index:idx_app_version,unique;index" json:"app_id"`
	Version string `gorm:"size:64;index:idx_app_version,unique" json:"version"`
	// DisplayName 人类可读标签，best-effort 生成，失败时退回确定性命名
	DisplayName string `gorm:"size:255" json:"display_name"`
	FilesCount  int    `json:"files_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Files []AppVersionFile `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE" json:"-"`
}

// AppVersionFile 快照内的单文件记录：动作标签 + 当时内容的完整副本.
// 新记录总是内联存储；大 blob 之后可由后台清扫按层级阈值迁移.
// FileID 弱引用活文件，活文件被改写或删除不影响历史快照内容.
type AppVersionFile struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	VersionID uint  `gorm:"index"      json:"version_id"`
	FileID    *uint `gorm:"index"      json:"file_id,omitempty"`

	Path   string     `gorm:"size:1024;index" json:"path"`
	Action FileAction `gorm:"size:16"         json:"action"`

	Content     string          `gorm:"type:text"      json:"-"`
	ObjectKey   string          `gorm:"size:255;index" json:"object_key,omitempty"`
	Location    ContentLocation `gorm:"size:16"        json:"location"`
	ContentHash string          `gorm:"size:64"        json:"content_hash"`
	SizeBytes   int64           `json:"size_bytes"`

	CreatedAt time.Time `json:"created_at"`
}
