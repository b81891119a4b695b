package types

import "time"

// WriteFileRequest 写入文件内容请求，路径取自 URL.
type WriteFileRequest struct {
	Content     string `json:"content"      rule:"required"` // 文件内容，禁止为空
	ContentType string `json:"content_type" rule:"max=255"`  // 可选：MIME 类型
}

// FileInfo 文件元信息，不含内容.
type FileInfo struct {
	Path        string    `json:"path"`
	Location    string    `json:"location"` // inline | object | hybrid
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReadFileResponse 读取文件响应.
type ReadFileResponse struct {
	FileInfo

	Content string `json:"content"`
}

// ListFilesResponse 应用文件列表响应.
type ListFilesResponse struct {
	Files []FileInfo `json:"files"`
	Total int        `json:"total"`
}

// MigrateFileRequest 手动触发单文件层级迁移请求.
type MigrateFileRequest struct {
	Path     string `json:"path"     rule:"required,max=1024"`
	Location string `json:"location" rule:"required,oneof=inline object hybrid"` // 目标位置
}

// MigrateResult 单文件迁移结果.
type MigrateResult struct {
	Path     string `json:"path"`
	Location string `json:"location,omitempty"` // 迁移后的位置
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// MigrateBatchRequest 批量迁移请求.
type MigrateBatchRequest struct {
	Files []MigrateFileRequest `json:"files" rule:"required,min=1,dive"`
}

// MigrateBatchResponse 批量迁移响应，逐文件给出结果.
type MigrateBatchResponse struct {
	Results   []MigrateResult `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}
