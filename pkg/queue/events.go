package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishAppCreated 发布 av.app.created 事件。
func PublishAppCreated(pub message.Publisher, payload AppCreatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAppCreated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAppCreated, msg)
}

// PublishAppDeleted 发布 av.app.deleted 事件。
func PublishAppDeleted(pub message.Publisher, payload AppDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAppDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAppDeleted, msg)
}

// PublishContentMigrateRequested 发布 av.content.migrate.requested 事件。
// 混合层文件在对象存储副本确认后登记迁移任务，由后台消费者清除内联副本。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishContentMigrateRequested(pub message.Publisher, payload ContentMigratePayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicContentMigrateRequested, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicContentMigrateRequested, msg)
}

// ParseContentMigrateRequested 将 Watermill 消息解析为强类型 Envelope（ContentMigratePayload）。
func ParseContentMigrateRequested(msg *message.Message) (Message[ContentMigratePayload], error) {
	return ParseWatermillMessage[ContentMigratePayload](msg)
}

// PublishContentMigrateCompleted 发布 av.content.migrate.completed 事件。
func PublishContentMigrateCompleted(pub message.Publisher, payload ContentMigratedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicContentMigrateCompleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicContentMigrateCompleted, msg)
}

// PublishContentMigrateFailed 发布 av.content.migrate.failed 事件。
func PublishContentMigrateFailed(pub message.Publisher, payload ContentMigrateFailedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicContentMigrateFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicContentMigrateFailed, msg)
}

// PublishVersionCreated 发布 av.version.created 事件。
func PublishVersionCreated(pub message.Publisher, payload VersionCreatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicVersionCreated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicVersionCreated, msg)
}

// PublishVersionRestored 发布 av.version.restored 事件。
func PublishVersionRestored(pub message.Publisher, payload VersionRestoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicVersionRestored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicVersionRestored, msg)
}

// PublishDeployRequested 发布 av.deploy.requested 事件。
func PublishDeployRequested(pub message.Publisher, payload DeployRequestedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDeployRequested, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDeployRequested, msg)
}

// PublishDeployCompleted 发布 av.deploy.completed 事件。
func PublishDeployCompleted(pub message.Publisher, payload DeployCompletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDeployCompleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDeployCompleted, msg)
}

// PublishDeployRolledBack 发布 av.deploy.rolledback 事件。
func PublishDeployRolledBack(pub message.Publisher, payload DeployRolledBackPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDeployRolledBack, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDeployRolledBack, msg)
}
