// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：av.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：content(内容分层)、version(版本快照)、deploy(部署)、app(应用生命周期)
// 状态：请求(requested)、完成(completed/created)、失败(failed)

const (
	// 应用生命周期领域.
	TopicAppCreated = "av.app.created" // 应用创建完成（已分配分片）
	TopicAppDeleted = "av.app.deleted" // 应用删除

	// 内容分层领域.
	TopicContentMigrateRequested = "av.content.migrate.requested" // 请求将混合层文件迁移到对象存储
	TopicContentMigrateCompleted = "av.content.migrate.completed" // 迁移完成（内联副本已清除）
	TopicContentMigrateFailed    = "av.content.migrate.failed"    // 迁移失败（内联副本保留，待重试）

	// 版本快照领域.
	TopicVersionCreated  = "av.version.created"  // 版本快照创建完成
	TopicVersionRestored = "av.version.restored" // 工作区已从历史快照恢复（产生新快照）

	// 部署领域.
	TopicDeployRequested  = "av.deploy.requested"  // 部署已登记（pending）
	TopicDeployCompleted  = "av.deploy.completed"  // 部署完成（success/failed 终态）
	TopicDeployRolledBack = "av.deploy.rolledback" // 环境已回滚到历史版本
)

// 主题分组，用于批量操作或权限控制.
var (
	// 应用生命周期相关主题集合.
	AppTopics = []string{
		TopicAppCreated, TopicAppDeleted,
	}

	// 内容分层相关主题集合.
	ContentTopics = []string{
		TopicContentMigrateRequested, TopicContentMigrateCompleted,
		TopicContentMigrateFailed,
	}

	// 版本快照相关主题集合.
	VersionTopics = []string{
		TopicVersionCreated, TopicVersionRestored,
	}

	// 部署相关主题集合.
	DeployTopics = []string{
		TopicDeployRequested, TopicDeployCompleted, TopicDeployRolledBack,
	}
)
