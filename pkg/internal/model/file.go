package model

import (
	"time"

	"gorm.io/gorm"
)

// ContentLocation 内容存储位置枚举.
// 三个取值穷尽所有合法状态：inline（仅数据库）、object（仅对象存储）、
// hybrid（两者都有，迁移过渡期的安全缓冲）.
type ContentLocation string

const (
	LocationInline ContentLocation = "inline"
	LocationObject ContentLocation = "object"
	LocationHybrid ContentLocation = "hybrid"
)

// Valid 检查位置取值是否合法.
func (l ContentLocation) Valid() bool {
	switch l {
	case LocationInline, LocationObject, LocationHybrid:
		return true
	}

	return false
}

// HasInline 该位置是否包含内联副本.
func (l ContentLocation) HasInline() bool {
	return l == LocationInline || l == LocationHybrid
}

// HasObject 该位置是否包含对象存储副本.
func (l ContentLocation) HasObject() bool {
	return l == LocationObject || l == LocationHybrid
}

// AppFile 应用工作区中的一个文件.
// 不变量：Location 包含 inline 则 Content 非空；包含 object 则 ObjectKey 非空；
// 两者绝不同时为空. ContentHash/SizeBytes 在每次成功写入后重算，与层级无关.
type AppFile struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// AppID + Path 唯一确定一个文件
	AppID uint   `gorm:"index:idx_app_path,unique;index" json:"app_id"`
	Path  string `gorm:"size:1024;index:idx_app_path,unique" json:"path"`
	// Content 内联内容（inline/hybrid 时非空）
	Content string `gorm:"type:text" json:"-"`
	// ObjectKey 对象存储键（object/hybrid 时非空），ULID 生成
	ObjectKey   string          `gorm:"size:255;index" json:"object_key,omitempty"`
	Location    ContentLocation `gorm:"size:16"        json:"location"`
	ContentHash string          `gorm:"size:64;index"  json:"content_hash"`
	SizeBytes   int64           `json:"size_bytes"`
	ContentType string          `gorm:"size:255" json:"content_type"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
