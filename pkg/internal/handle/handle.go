// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/service"
)

// appFromSlug 按路径参数 slug 加载应用；不存在时写 404 并返回 nil.
func appFromSlug(c *gin.Context) *model.App {
	slug := c.Param("slug")

	svc := service.NewAppService(c.Request.Context())

	app, err := svc.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}

		c.JSON(status, gin.H{"error": "app not found: " + slug})

		return nil
	}

	return app
}

// writeServiceError 将 service 层错误映射为 HTTP 状态码：
// 校验与不变量错误是调用方问题，取数/完整性错误是服务端问题.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidEnvironment),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrEmptyApp):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRollbackOfRollback),
		errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrObjectFetch),
		errors.Is(err, service.ErrContentMissing),
		errors.Is(err, service.ErrHashMismatch):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
