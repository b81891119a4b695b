package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/types"
	"github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/rule"
)

// appInfo 模型到响应结构的转换.
func appInfo(app *model.App) types.AppInfo {
	return types.AppInfo{
		ID:        app.ID,
		Slug:      app.Slug,
		Name:      app.Name,
		Shard:     app.Shard,
		CreatedAt: app.CreatedAt,
		UpdatedAt: app.UpdatedAt,
	}
}

// CreateApp 创建应用.
//
//	@Summary		创建应用
//	@Description	创建一个新应用，slug 作为子域名标识全局唯一，分片在创建时一次性选定
//	@Tags			应用
//	@Accept			json
//	@Produce		json
//	@Param			app	body		types.CreateAppRequest	true	"创建应用请求"
//	@Success		201	{object}	types.AppInfo			"应用信息"
//	@Failure		400	{object}	map[string]string		"请求参数错误"
//	@Router			/api/v1/apps [post]
func CreateApp(c *gin.Context) {
	var req types.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewAppService(c.Request.Context())

	app, err := svc.Create(c.Request.Context(), req.Slug, req.Name)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, appInfo(app))
}

// GetApp 获取应用信息.
//
//	@Summary	获取应用
//	@Tags		应用
//	@Produce	json
//	@Param		slug	path		string			true	"应用 slug"
//	@Success	200		{object}	types.AppInfo	"应用信息"
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/apps/{slug} [get]
func GetApp(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	c.JSON(http.StatusOK, appInfo(app))
}

// ListApps 列出全部应用.
//
//	@Summary	应用列表
//	@Tags		应用
//	@Produce	json
//	@Success	200	{object}	types.ListAppsResponse
//	@Router		/api/v1/apps [get]
func ListApps(c *gin.Context) {
	svc := service.NewAppService(c.Request.Context())

	apps, err := svc.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.ListAppsResponse{Apps: make([]types.AppInfo, 0, len(apps)), Total: len(apps)}
	for i := range apps {
		resp.Apps = append(resp.Apps, appInfo(&apps[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteApp 删除应用并级联清理文件、版本与部署记录.
//
//	@Summary	删除应用
//	@Tags		应用
//	@Produce	json
//	@Param		slug	path	string	true	"应用 slug"
//	@Success	200		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/apps/{slug} [delete]
func DeleteApp(c *gin.Context) {
	svc := service.NewAppService(c.Request.Context())

	if err := svc.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "app deleted"})
}

// ListShards 返回各分片的负载信息.
//
//	@Summary	分片负载
//	@Tags		应用
//	@Produce	json
//	@Success	200	{object}	types.ListShardsResponse
//	@Router		/api/v1/shards [get]
func ListShards(c *gin.Context) {
	svc := service.NewShardService(c.Request.Context())

	loads, err := svc.Loads(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.ListShardsResponse{Shards: loads})
}
