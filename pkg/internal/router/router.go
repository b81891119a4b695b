// Package router 管理路由配置，用于设置HTTP服务的路由.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 将全部业务路由绑定到 /api/v1 分组.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterAppsRoutes(g)
	RegisterSchedulerRoutes(g)
	RegisterHealthCheckRoute(g)
}
