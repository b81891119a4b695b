package types

import "time"

// DeployRequest 发起部署请求.
type DeployRequest struct {
	Environment string `json:"environment" rule:"required,oneof=preview staging production"`
}

// DeploymentInfo 单条部署记录.
type DeploymentInfo struct {
	ID              uint       `json:"id"`
	Environment     string     `json:"environment"`
	Status          string     `json:"status"` // pending | success | failed
	URL             string     `json:"url"`
	DeployedVersion string     `json:"deployed_version,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	IsRollback      bool       `json:"is_rollback"`
	RollbackOfID    *uint      `json:"rollback_of_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// EnvironmentStatus 单环境的当前状态.
type EnvironmentStatus struct {
	Environment string          `json:"environment"`
	Status      string          `json:"status"` // not_deployed | pending | success | failed
	Deployment  *DeploymentInfo `json:"deployment,omitempty"`
}

// DeploymentStatusResponse 应用在全部环境下的部署状态.
type DeploymentStatusResponse struct {
	AppID        uint                `json:"app_id"`
	Environments []EnvironmentStatus `json:"environments"`
}

// MarkOutcomeRequest 构建 worker 回写部署结果的请求.
type MarkOutcomeRequest struct {
	Status          string `json:"status" rule:"required,oneof=success failed"`
	DeployedVersion string `json:"deployed_version" rule:"max=64"`
	ErrorMessage    string `json:"error_message"`
}

// ListDeploymentsResponse 部署历史响应，按创建时间倒序.
type ListDeploymentsResponse struct {
	Deployments []DeploymentInfo `json:"deployments"`
	Total       int              `json:"total"`
}
