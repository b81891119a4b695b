// Package api 组装 HTTP 路由：应用/文件/版本/部署业务路由与健康检查、文档路由.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/router"
)

// RegisterGroup 注册全部路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAPIRoutes(e.Group("/api/v1"))
	router.RegisterHealthzRoute(e)
	router.RegisterSwaggerRoute(e)

	return e
}
