// Package service 实现业务逻辑：内容分层存储、版本快照与部署状态机，不处理 HTTP 细节.
package service

import "errors"

// 校验类错误：在创建任何状态之前同步拒绝.
var (
	// ErrEmptyContent 拒绝空内容写入；清空内容必须走文件删除.
	ErrEmptyContent = errors.New("content is empty")
	// ErrEmptyApp 应用没有任何文件，无法部署.
	ErrEmptyApp = errors.New("app has no files")
	// ErrInvalidEnvironment 环境名不在 preview/staging/production 之内.
	ErrInvalidEnvironment = errors.New("invalid environment")
	// ErrInvalidLocation 存储位置不在 inline/object/hybrid 之内.
	ErrInvalidLocation = errors.New("invalid storage location")
)

// 完整性类错误：操作中止，保留迁移前状态，绝不静默丢数据.
var (
	// ErrContentMissing 文件在所有层级都没有内容，数据完整性被破坏.
	ErrContentMissing = errors.New("content missing in all storage tiers")
	// ErrHashMismatch 迁移校验时远端副本与 content_hash 不一致.
	ErrHashMismatch = errors.New("content hash mismatch")
)

// 外部依赖类错误：视为瞬态，有回退路径的操作降级处理.
var (
	// ErrObjectFetch 对象存储读取失败.
	ErrObjectFetch = errors.New("object fetch failed")
)

// 不变量类错误：数据层约束拒绝，调用方必须视为永久失败，不可重试.
var (
	// ErrRollbackOfRollback 禁止回滚一条回滚记录.
	ErrRollbackOfRollback = errors.New("cannot roll back a rollback deployment")
	// ErrNotPending 只有 pending 状态的部署才能写入终态.
	ErrNotPending = errors.New("deployment is not pending")
	// ErrShardsExhausted 所有分片均已达到容量上限.
	ErrShardsExhausted = errors.New("all shards are at capacity")
)
