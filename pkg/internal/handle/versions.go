package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/types"
)

// versionInfo 模型到响应结构的转换.
func versionInfo(v *model.AppVersion) types.VersionInfo {
	return types.VersionInfo{
		ID:          v.ID,
		Version:     v.Version,
		DisplayName: v.DisplayName,
		FilesCount:  v.FilesCount,
		CreatedAt:   v.CreatedAt,
	}
}

// CreateSnapshot 为当前工作区创建不可变版本快照.
//
//	@Summary		创建版本快照
//	@Description	捕获应用当前全部文件内容，版本号在应用内单调递增
//	@Tags			版本
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string						true	"应用 slug"
//	@Param			req		body		types.CreateSnapshotRequest	false	"快照请求"
//	@Success		201		{object}	types.VersionInfo
//	@Router			/api/v1/apps/{slug}/versions [post]
func CreateSnapshot(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	var req types.CreateSnapshotRequest
	_ = c.ShouldBindJSON(&req) // body 可选

	svc := service.NewVersionService(c.Request.Context())

	v, err := svc.Snapshot(c.Request.Context(), app.ID, req.Message)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, versionInfo(v))
}

// ListVersions 版本列表，按创建先后倒序.
//
//	@Summary	版本列表
//	@Tags		版本
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Success	200		{object}	types.ListVersionsResponse
//	@Router		/api/v1/apps/{slug}/versions [get]
func ListVersions(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewVersionService(c.Request.Context())

	versions, err := svc.List(c.Request.Context(), app.ID)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.ListVersionsResponse{
		Versions: make([]types.VersionInfo, 0, len(versions)),
		Total:    len(versions),
	}
	for i := range versions {
		resp.Versions = append(resp.Versions, versionInfo(&versions[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// GetVersion 版本详情，含逐文件动作标签.
//
//	@Summary	版本详情
//	@Tags		版本
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Param		version	path		string	true	"版本号"
//	@Success	200		{object}	types.VersionDetailResponse
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/apps/{slug}/versions/{version} [get]
func GetVersion(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewVersionService(c.Request.Context())

	v, err := svc.GetByVersion(c.Request.Context(), app.ID, c.Param("version"))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.VersionDetailResponse{
		VersionInfo: versionInfo(v),
		Files:       make([]types.VersionFileInfo, 0, len(v.Files)),
	}
	for _, f := range v.Files {
		resp.Files = append(resp.Files, types.VersionFileInfo{
			Path:        f.Path,
			Action:      string(f.Action),
			ContentHash: f.ContentHash,
			SizeBytes:   f.SizeBytes,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// RestoreVersion 恢复工作区到指定快照，并登记新的 restored 快照.
//
//	@Summary		恢复版本
//	@Description	历史只追加：恢复重放快照内容并产生新快照，不改写任何历史记录
//	@Tags			版本
//	@Produce		json
//	@Param			slug	path		string	true	"应用 slug"
//	@Param			version	path		string	true	"版本号"
//	@Success		200		{object}	types.RestoreVersionResponse
//	@Failure		404		{object}	map[string]string
//	@Router			/api/v1/apps/{slug}/versions/{version}/restore [post]
func RestoreVersion(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewVersionService(c.Request.Context())

	from := c.Param("version")

	newVersion, restored, err := svc.Restore(c.Request.Context(), app.ID, from)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.RestoreVersionResponse{
		FromVersion: from,
		NewVersion:  versionInfo(newVersion),
		Restored:    restored,
	})
}

// DiffVersions 比较两个版本的差异.
//
//	@Summary	版本差异
//	@Tags		版本
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Param		from	query		string	true	"基准版本"
//	@Param		to		query		string	true	"目标版本"
//	@Success	200		{object}	types.DiffVersionsResponse
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/apps/{slug}/diff [get]
func DiffVersions(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query parameters are required"})

		return
	}

	svc := service.NewVersionService(c.Request.Context())

	diff, err := svc.Diff(c.Request.Context(), app.ID, from, to)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, diff)
}
