package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
	"github.com/yeisme/appvault/pkg/internal/types"
	"github.com/yeisme/appvault/pkg/log"
	"github.com/yeisme/appvault/pkg/rule"
)

// filePath 提取通配路径参数并去掉前导斜杠.
func filePath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

// fileInfo 模型到响应结构的转换.
func fileInfo(f *model.AppFile) types.FileInfo {
	return types.FileInfo{
		Path:        f.Path,
		Location:    string(f.Location),
		ContentHash: f.ContentHash,
		SizeBytes:   f.SizeBytes,
		ContentType: f.ContentType,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ReadFile 读取文件内容，按存储位置透明取数.
//
//	@Summary		读取文件
//	@Description	按存储层级透明读取文件内容：内联直接返回，对象层走缓存/对象存储，混合层支持回退
//	@Tags			文件
//	@Produce		json
//	@Param			slug	path		string	true	"应用 slug"
//	@Param			path	path		string	true	"文件路径"
//	@Success		200		{object}	types.ReadFileResponse
//	@Failure		404		{object}	map[string]string
//	@Failure		502		{object}	map[string]string	"对象存储取数失败"
//	@Router			/api/v1/apps/{slug}/files/{path} [get]
func ReadFile(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewContentService(c.Request.Context())

	data, file, err := svc.Read(c.Request.Context(), app.ID, filePath(c))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.ReadFileResponse{
		FileInfo: fileInfo(file),
		Content:  string(data),
	})
}

// WriteFile 写入文件内容. 空内容被拒绝；超过分层阈值的内容
// 会在写入后异步下沉.
//
//	@Summary	写入文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string					true	"应用 slug"
//	@Param		path	path		string					true	"文件路径"
//	@Param		file	body		types.WriteFileRequest	true	"写入请求"
//	@Success	200		{object}	types.FileInfo
//	@Failure	400		{object}	map[string]string	"内容为空或参数错误"
//	@Router		/api/v1/apps/{slug}/files/{path} [put]
func WriteFile(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	var req types.WriteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewContentService(c.Request.Context())

	file, err := svc.Write(c.Request.Context(), app.ID, filePath(c), []byte(req.Content), req.ContentType)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, fileInfo(file))
}

// DeleteFile 删除文件，这是清空内容的唯一途径.
//
//	@Summary	删除文件
//	@Tags		文件
//	@Produce	json
//	@Param		slug	path	string	true	"应用 slug"
//	@Param		path	path	string	true	"文件路径"
//	@Success	200		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/apps/{slug}/files/{path} [delete]
func DeleteFile(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewContentService(c.Request.Context())
	if err := svc.Delete(c.Request.Context(), app.ID, filePath(c)); err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// ListFiles 列出应用全部文件的元数据.
//
//	@Summary	文件列表
//	@Tags		文件
//	@Produce	json
//	@Param		slug	path		string	true	"应用 slug"
//	@Success	200		{object}	types.ListFilesResponse
//	@Router		/api/v1/apps/{slug}/files [get]
func ListFiles(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	svc := service.NewContentService(c.Request.Context())

	files, err := svc.List(c.Request.Context(), app.ID)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	resp := types.ListFilesResponse{Files: make([]types.FileInfo, 0, len(files)), Total: len(files)}
	for i := range files {
		resp.Files = append(resp.Files, fileInfo(&files[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// MigrateFile 手动把单个文件迁到目标存储位置，verify-then-commit.
//
//	@Summary	迁移文件存储层级
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string						true	"应用 slug"
//	@Param		req		body		types.MigrateFileRequest	true	"迁移请求"
//	@Success	200		{object}	types.MigrateResult
//	@Failure	400		{object}	map[string]string
//	@Router		/api/v1/apps/{slug}/migrate [post]
func MigrateFile(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	var req types.MigrateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewContentService(c.Request.Context())

	file, err := svc.MigrateToLocation(c.Request.Context(), app.ID, req.Path, model.ContentLocation(req.Location))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.MigrateResult{
		Path:     file.Path,
		Location: string(file.Location),
		Success:  true,
	})
}

// MigrateFilesBatch 批量迁移，逐文件隔离，单个失败不影响其余.
//
//	@Summary	批量迁移文件存储层级
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string						true	"应用 slug"
//	@Param		req		body		types.MigrateBatchRequest	true	"批量迁移请求"
//	@Success	200		{object}	types.MigrateBatchResponse
//	@Router		/api/v1/apps/{slug}/migrate/batch [post]
func MigrateFilesBatch(c *gin.Context) {
	app := appFromSlug(c)
	if app == nil {
		return
	}

	var req types.MigrateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewContentService(c.Request.Context())
	resp := svc.MigrateBatch(c.Request.Context(), app.ID, req.Files)

	c.JSON(http.StatusOK, resp)
}
