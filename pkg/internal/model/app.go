// Package model 定义数据库模型：应用、文件、版本快照与部署记录.
package model

import (
	"time"

	"gorm.io/gorm"
)

// App 应用模型，一个 AI 生成的 Web 应用.
type App struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Slug 子域名标识（RFC-1123），全局唯一，用于生成部署 URL
	Slug string `gorm:"size:63;uniqueIndex" json:"slug"`
	Name string `gorm:"size:255"            json:"name"`
	// Shard 创建时由 ShardService 一次性选定的数据分片名，之后不可变更
	Shard string `gorm:"size:128;index" json:"shard"`
	// 删除应用时文件/版本/部署级联清理；应用行本身硬删以释放 slug
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Files       []AppFile    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Versions    []AppVersion `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Deployments []Deployment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
