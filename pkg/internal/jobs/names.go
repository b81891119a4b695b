package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobSnapshotBlobSweep = "version.blob_sweep"
	JobDeployReapStale   = "deploy.reap_stale"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	// CronSnapshotBlobSweep 每天 03:20 下沉大体积快照 blob.
	CronSnapshotBlobSweep = "20 3 * * *"
	// CronDeployReapStale 每 5 分钟清理超时的 pending 部署.
	CronDeployReapStale = "*/5 * * * *"
)

// SweepBatchLimit 单次清扫处理的快照 blob 上限.
const SweepBatchLimit = 500
