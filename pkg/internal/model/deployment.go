package model

import (
	"time"

	"gorm.io/gorm"
)

// Environment 部署环境枚举.
type Environment string

const (
	EnvPreview    Environment = "preview"
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

// Valid 检查环境取值是否合法.
func (e Environment) Valid() bool {
	switch e {
	case EnvPreview, EnvStaging, EnvProduction:
		return true
	}

	return false
}

// Environments 全部合法环境，固定顺序，供状态聚合遍历.
var Environments = []Environment{EnvPreview, EnvStaging, EnvProduction}

// DeployStatus 部署状态枚举：pending → success | failed.
type DeployStatus string

const (
	DeployPending DeployStatus = "pending"
	DeploySuccess DeployStatus = "success"
	DeployFailed  DeployStatus = "failed"
)

// Deployment 一次部署尝试，追加式日志记录.
// 不变量：同一 (app_id, environment) 下非回滚且未被取代的行至多一条，
// 由部分唯一索引兜底（见 Migrate）. 行创建后只允许 MarkOutcome 修改
// 状态相关字段；新的部署通过取代旧行而非改写旧行来接管"当前"语义.
type Deployment struct {
	ID          uint         `gorm:"primaryKey"      json:"id"`
	AppID       uint         `gorm:"index"           json:"app_id"`
	Environment Environment  `gorm:"size:16;index"   json:"environment"`
	Status      DeployStatus `gorm:"size:16;index"   json:"status"`
	URL         string       `gorm:"size:512"        json:"url"`
	// DeployedVersion 部署完成后由 worker 回填的版本标签
	DeployedVersion string `gorm:"size:64"   json:"deployed_version,omitempty"`
	ErrorMessage    string `gorm:"type:text" json:"error_message,omitempty"`

	// IsRollback 回滚记录标志；RollbackOfID 指向被回滚到的原始部署
	IsRollback   bool  `gorm:"default:false;index" json:"is_rollback"`
	RollbackOfID *uint `gorm:"index"               json:"rollback_of_id,omitempty"`

	// Superseded 被后续同环境部署取代的标记；历史保留，永不删除
	Superseded bool `gorm:"default:false;index" json:"superseded"`

	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Migrate 执行全部模型的 AutoMigrate，并补建 gorm 无法表达的部分唯一索引.
// 索引语义：每个 (app_id, environment) 同时只允许一条活跃的非回滚部署，
// 并发 Deploy 竞争时后到者由该约束拒绝. 谓词语法在 SQLite 与 PostgreSQL
// 下一致.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&App{},
		&AppFile{},
		&AppVersion{},
		&AppVersionFile{},
		&Deployment{},
	); err != nil {
		return err
	}

	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_deployment
		 ON deployments (app_id, environment)
		 WHERE is_rollback = FALSE AND superseded = FALSE AND deleted_at IS NULL`,
	).Error
}
