package types

import "time"

// CreateSnapshotRequest 创建版本快照请求.
type CreateSnapshotRequest struct {
	Message string `json:"message" rule:"max=1024"` // 可选：用于生成展示名的变更说明
}

// VersionInfo 版本快照元信息.
type VersionInfo struct {
	ID          uint      `json:"id"`
	Version     string    `json:"version"`
	DisplayName string    `json:"display_name"`
	FilesCount  int       `json:"files_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListVersionsResponse 版本列表响应，按创建时间倒序.
type ListVersionsResponse struct {
	Versions []VersionInfo `json:"versions"`
	Total    int           `json:"total"`
}

// VersionFileInfo 快照内单文件的元信息.
type VersionFileInfo struct {
	Path        string `json:"path"`
	Action      string `json:"action"` // created | updated | deleted | restored
	ContentHash string `json:"content_hash,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

// VersionDetailResponse 版本详情响应.
type VersionDetailResponse struct {
	VersionInfo

	Files []VersionFileInfo `json:"files"`
}

// RestoreVersionResponse 恢复版本响应.
// 恢复不改写历史，而是产生一个新的 restored 快照.
type RestoreVersionResponse struct {
	FromVersion string      `json:"from_version"`
	NewVersion  VersionInfo `json:"new_version"`
	Restored    int         `json:"restored"` // 恢复的文件数
}

// DiffLine 行级差异.
type DiffLine struct {
	Type    string `json:"type"` // added | removed | unchanged
	Line    int    `json:"line"` // 所属侧的行号（从 1 开始）
	Content string `json:"content"`
}

// FileDiff 单文件差异.
type FileDiff struct {
	Path   string     `json:"path"`
	Status string     `json:"status"` // added | removed | modified | unchanged
	Lines  []DiffLine `json:"lines,omitempty"`
}

// DiffVersionsResponse 两个版本间的差异响应.
type DiffVersionsResponse struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Files []FileDiff `json:"files"`
}
