package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/appvault/pkg/configs"
	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/queue"
)

// newTestDeploy 组装接内存依赖的 DeployService，附带一个有文件的应用.
func newTestDeploy(t *testing.T) (*DeployService, *model.App, *capturedPublisher) {
	t.Helper()

	cs, _, pub := newTestContent(t)
	app := createTestApp(t, cs.db, "demo")

	if _, err := cs.Write(context.Background(), app.ID, "index.html", []byte("<html>"), ""); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ds := &DeployService{
		db:  cs.db,
		pub: pub,
		cfg: configs.DeployConfig{BaseDomain: "appvault.dev", PendingTimeoutMinutes: 15},
	}

	return ds, app, pub
}

func TestDeployURLDeterministic(t *testing.T) {
	ds := &DeployService{cfg: configs.DeployConfig{BaseDomain: "appvault.dev"}}

	cases := []struct {
		env  model.Environment
		want string
	}{
		{model.EnvProduction, "https://demo.appvault.dev"},
		{model.EnvStaging, "https://staging-demo.appvault.dev"},
		{model.EnvPreview, "https://preview-demo.appvault.dev"},
	}

	for _, c := range cases {
		if got := ds.DeployURL("demo", c.env); got != c.want {
			t.Errorf("DeployURL(%s) = %s, want %s", c.env, got, c.want)
		}
	}
}

func TestDeployRejectsInvalidEnvironment(t *testing.T) {
	ds, app, _ := newTestDeploy(t)

	if _, err := ds.Deploy(context.Background(), app.ID, "qa"); !errors.Is(err, ErrInvalidEnvironment) {
		t.Fatalf("err = %v, want ErrInvalidEnvironment", err)
	}
}

func TestDeployRejectsEmptyApp(t *testing.T) {
	ds, _, _ := newTestDeploy(t)
	empty := createTestApp(t, ds.db, "empty")

	if _, err := ds.Deploy(context.Background(), empty.ID, model.EnvProduction); !errors.Is(err, ErrEmptyApp) {
		t.Fatalf("err = %v, want ErrEmptyApp", err)
	}
}

func TestDeployTwiceSupersedesFirst(t *testing.T) {
	ds, app, pub := newTestDeploy(t)
	ctx := context.Background()

	first, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy 1: %v", err)
	}

	second, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy 2: %v", err)
	}

	// 两条记录都在，历史可查
	history, err := ds.History(ctx, app.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("history = %d rows, want 2", len(history))
	}

	current, err := ds.Current(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	if current.ID != second.ID {
		t.Fatalf("current = %d, want second deployment %d", current.ID, second.ID)
	}

	// 单活跃不变量：非回滚未取代的行恰好一条
	var active int64
	if err := ds.db.Model(&model.Deployment{}).
		Where("app_id = ? AND environment = ? AND is_rollback = ? AND superseded = ?",
			app.ID, model.EnvProduction, false, false).
		Count(&active).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if active != 1 {
		t.Fatalf("active rows = %d, want exactly 1", active)
	}

	var superseded model.Deployment
	if err := ds.db.First(&superseded, first.ID).Error; err != nil {
		t.Fatalf("load first: %v", err)
	}

	if !superseded.Superseded {
		t.Fatal("first deployment not marked superseded")
	}

	if n := pub.published(queue.TopicDeployRequested); n != 2 {
		t.Fatalf("deploy requested events = %d, want 2", n)
	}
}

func TestMarkOutcomeOnlyFromPending(t *testing.T) {
	ds, app, _ := newTestDeploy(t)
	ctx := context.Background()

	d, err := ds.Deploy(ctx, app.ID, model.EnvStaging)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	done, err := ds.MarkOutcome(ctx, app.ID, d.ID, model.DeploySuccess, "1.0.0", "")
	if err != nil {
		t.Fatalf("mark outcome: %v", err)
	}

	if done.Status != model.DeploySuccess || done.CompletedAt == nil || done.DeployedVersion != "1.0.0" {
		t.Fatalf("outcome not recorded: %+v", done)
	}

	// 终态不可再改
	if _, err := ds.MarkOutcome(ctx, app.ID, d.ID, model.DeployFailed, "", "late failure"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}

	// pending 也不能写成 pending
	d2, err := ds.Deploy(ctx, app.ID, model.EnvStaging)
	if err != nil {
		t.Fatalf("deploy 2: %v", err)
	}

	if _, err := ds.MarkOutcome(ctx, app.ID, d2.ID, model.DeployPending, "", ""); !errors.Is(err, ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending for non-terminal status", err)
	}
}

func TestMarkOutcomeScopedToOwningApp(t *testing.T) {
	ds, app, _ := newTestDeploy(t)
	ctx := context.Background()

	d, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	other := createTestApp(t, ds.db, "other")

	// 借其他应用的身份回写部署结果按行不存在处理
	if _, err := ds.MarkOutcome(ctx, other.ID, d.ID, model.DeploySuccess, "1.0.0", ""); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record not found for foreign app", err)
	}

	var loaded model.Deployment
	if err := ds.db.First(&loaded, d.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Status != model.DeployPending || loaded.CompletedAt != nil {
		t.Fatalf("foreign outcome write must not mutate the row: %+v", loaded)
	}

	if _, err := ds.MarkOutcome(ctx, app.ID, d.ID, model.DeploySuccess, "1.0.0", ""); err != nil {
		t.Fatalf("owner mark outcome: %v", err)
	}
}

func TestRollbackReferencesTargetAndRejectsChains(t *testing.T) {
	ds, app, pub := newTestDeploy(t)
	ctx := context.Background()

	d, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if _, err := ds.MarkOutcome(ctx, app.ID, d.ID, model.DeploySuccess, "1.0.0", ""); err != nil {
		t.Fatalf("mark outcome: %v", err)
	}

	rollback, err := ds.Rollback(ctx, app.ID, d.ID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if !rollback.IsRollback || rollback.RollbackOfID == nil || *rollback.RollbackOfID != d.ID {
		t.Fatalf("rollback row malformed: %+v", rollback)
	}

	if rollback.URL != d.URL || rollback.DeployedVersion != "1.0.0" {
		t.Fatalf("rollback must inherit target metadata: %+v", rollback)
	}

	// 禁止回滚链：回滚一条回滚记录必须失败且不落行
	var before int64
	ds.db.Model(&model.Deployment{}).Count(&before)

	if _, err := ds.Rollback(ctx, app.ID, rollback.ID); !errors.Is(err, ErrRollbackOfRollback) {
		t.Fatalf("err = %v, want ErrRollbackOfRollback", err)
	}

	var after int64
	ds.db.Model(&model.Deployment{}).Count(&after)

	if before != after {
		t.Fatal("failed rollback must not create a row")
	}

	if n := pub.published(queue.TopicDeployRolledBack); n != 1 {
		t.Fatalf("rollback events = %d, want 1", n)
	}
}

func TestRollbackLayersOnTopOfActiveRow(t *testing.T) {
	ds, app, _ := newTestDeploy(t)
	ctx := context.Background()

	d, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	rollback, err := ds.Rollback(ctx, app.ID, d.ID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	current, err := ds.Current(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	if current.ID != rollback.ID {
		t.Fatalf("current = %d, want rollback row %d", current.ID, rollback.ID)
	}

	// 新的真实部署接管当前语义
	next, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("redeploy: %v", err)
	}

	current, err = ds.Current(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	if current.ID != next.ID {
		t.Fatalf("current = %d, want new deployment %d", current.ID, next.ID)
	}
}

func TestCurrentStatusReportsNotDeployed(t *testing.T) {
	ds, app, _ := newTestDeploy(t)
	ctx := context.Background()

	if _, err := ds.Deploy(ctx, app.ID, model.EnvPreview); err != nil {
		t.Fatalf("deploy: %v", err)
	}

	statuses, err := ds.CurrentStatus(ctx, app.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	if statuses[model.EnvPreview] == nil {
		t.Fatal("preview should have a deployment")
	}

	if statuses[model.EnvProduction] != nil || statuses[model.EnvStaging] != nil {
		t.Fatal("untouched environments must report not deployed")
	}
}

func TestReapStalePendingMarksTimeouts(t *testing.T) {
	ds, app, _ := newTestDeploy(t)
	ctx := context.Background()

	d, err := ds.Deploy(ctx, app.ID, model.EnvProduction)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	stale := time.Now().Add(-time.Hour)
	if err := ds.db.Model(&model.Deployment{}).Where("id = ?", d.ID).
		Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	reaped, err := ds.ReapStalePending(ctx, 15*time.Minute)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}

	if reaped != 1 {
		t.Fatalf("reaped = %d, want 1", reaped)
	}

	var loaded model.Deployment
	if err := ds.db.First(&loaded, d.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Status != model.DeployFailed || loaded.ErrorMessage == "" || loaded.CompletedAt == nil {
		t.Fatalf("stale deployment not failed properly: %+v", loaded)
	}

	// 失败后可通过新部署重试
	if _, err := ds.Deploy(ctx, app.ID, model.EnvProduction); err != nil {
		t.Fatalf("redeploy after timeout: %v", err)
	}
}

func TestCurrentForUnknownAppIsNotFound(t *testing.T) {
	ds, _, _ := newTestDeploy(t)

	if _, err := ds.Current(context.Background(), 999, model.EnvProduction); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record not found", err)
	}
}
