// Package types 定义 HTTP API 的请求与响应结构.
package types

import "time"

// CreateAppRequest 创建应用请求.
type CreateAppRequest struct {
	Slug string `json:"slug" rule:"required,hostname_rfc1123,max=63"` // 子域名标识
	Name string `json:"name" rule:"max=255"`                          // 展示名，可选
}

// AppInfo 应用元信息.
type AppInfo struct {
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Shard     string    `json:"shard"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListAppsResponse 应用列表响应.
type ListAppsResponse struct {
	Apps  []AppInfo `json:"apps"`
	Total int       `json:"total"`
}

// ShardInfo 单个分片的负载信息.
type ShardInfo struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Capacity int    `json:"capacity"`
	AppCount int64  `json:"app_count"`
}

// ListShardsResponse 分片负载响应.
type ListShardsResponse struct {
	Shards []ShardInfo `json:"shards"`
}
