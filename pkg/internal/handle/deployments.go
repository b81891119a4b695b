package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/types"
	"github.com/yeisme/appvault/pkg/rule"
)

// deploymentInfo 模型到响应结构的转换.
func deploymentInfo(d *model.Deployment) types.DeploymentInfo {
	return types.DeploymentInfo{
		ID:              d.ID,
		Environment:     string(d.Environment),
		Status:          string(d.Status),
		URL:             d.URL,
		DeployedVersion: d.DeployedVersion,
		ErrorMessage:    d.ErrorMessage,
		IsRollback:      d.IsRollback,
		RollbackOfID:    d.RollbackOfID,
		CreatedAt:       d.CreatedAt,
		CompletedAt:     d.CompletedAt,
	}
}

// deploymentID 解析路径中的部署 ID.
func deploymentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deployment id"})

		return 0, false
	}

	return uint(id), true
}

// Deploy 向指定环境发起部署，返回 pending 描述符.
//
//	@Summary		发起部署
//	@Description	取代同环境旧的活跃部署并登记 pending 新行，目标 URL 由 slug 与环境确定性拼出
//	@Tags			部署
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string				true	"应用 slug"
//	@Param			req		body		types.DeployRequest	true	"部署请求"
//	@Success		201		{object}	types.DeploymentInfo
//	@Failure		400		{object}	map[string]string	"环境非法或应用为空"
//	@Router			/api/v1/apps/{slug}/deployments [post]
func Deploy(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	var req types.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewDeployService(c.Request.Context())

	d, err := svc.Deploy(c.Request.Context(), app.ID, model.Environment(req.Environment))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, deploymentInfo(d))
}

// DeploymentStatus 聚合应用在全部环境下的部署状态.
//
//	@Summary	部署状态
//	@Tags		部署
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Success	200		{object}	types.DeploymentStatusResponse
//	@Router		/api/v1/apps/{slug}/deployments/status [get]
func DeploymentStatus(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewDeployService(c.Request.Context())

	statuses, err := svc.CurrentStatus(c.Request.Context(), app.ID)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.DeploymentStatusResponse{
		AppID:        app.ID,
		Environments: make([]types.EnvironmentStatus, 0, len(model.Environments)),
	}

	for _, env := range model.Environments {
		es := types.EnvironmentStatus{Environment: string(env), Status: service.StatusNotDeployed}

		if d := statuses[env]; d != nil {
			info := deploymentInfo(d)
			es.Status = info.Status
			es.Deployment = &info
		}

		resp.Environments = append(resp.Environments, es)
	}

	c.JSON(http.StatusOK, resp)
}

// ListDeployments 部署历史，含被取代的行.
//
//	@Summary	部署历史
//	@Tags		部署
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Success	200		{object}	types.ListDeploymentsResponse
//	@Router		/api/v1/apps/{slug}/deployments [get]
func ListDeployments(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewDeployService(c.Request.Context())

	deployments, err := svc.History(c.Request.Context(), app.ID)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.ListDeploymentsResponse{
		Deployments: make([]types.DeploymentInfo, 0, len(deployments)),
		Total:       len(deployments),
	}
	for i := range deployments {
		resp.Deployments = append(resp.Deployments, deploymentInfo(&deployments[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// MarkDeploymentOutcome 构建 worker 回写部署终态.
//
//	@Summary		回写部署结果
//	@Description	pending 到 success/failed 的单向转换，部署行唯一允许的修改
//	@Tags			部署
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string						true	"应用 slug"
//	@Param			id		path		int							true	"部署 ID"
//	@Param			req		body		types.MarkOutcomeRequest	true	"结果"
//	@Success		200		{object}	types.DeploymentInfo
//	@Failure		409		{object}	map[string]string	"部署不在 pending 状态"
//	@Router			/api/v1/apps/{slug}/deployments/{id}/outcome [post]
func MarkDeploymentOutcome(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	id, ok := deploymentID(c)
	if !ok {
		return
	}

	var req types.MarkOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewDeployService(c.Request.Context())

	d, err := svc.MarkOutcome(c.Request.Context(), app.ID, id, model.DeployStatus(req.Status), req.DeployedVersion, req.ErrorMessage)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, deploymentInfo(d))
}

// RollbackDeployment 回滚到指定的历史部署.
//
//	@Summary		回滚部署
//	@Description	目标不能本身是回滚记录；创建引用目标的新 pending 行，原始行不被改写
//	@Tags			部署
//	@Produce		json
//	@Param			slug	path		string	true	"应用 slug"
//	@Param			id		path		int		true	"回滚目标部署 ID"
//	@Success		201		{object}	types.DeploymentInfo
//	@Failure		409		{object}	map[string]string	"目标是回滚记录"
//	@Router			/api/v1/apps/{slug}/deployments/{id}/rollback [post]
func RollbackDeployment(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	id, ok := deploymentID(c)
	if !ok {
		return
	}

	svc := service.NewDeployService(c.Request.Context())

	d, err := svc.Rollback(c.Request.Context(), app.ID, id)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, deploymentInfo(d))
}
