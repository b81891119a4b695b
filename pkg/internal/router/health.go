package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册分组件健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/db", handle.HealthDB)
		healthRoutes.GET("/s3", handle.HealthS3)
		healthRoutes.GET("/mq", handle.HealthMQ)
	}
}

// RegisterHealthzRoute 注册聚合健康检查（不挂 API 前缀，供探针使用）.
func RegisterHealthzRoute(r *gin.Engine) {
	r.GET("/healthz", handle.Healthz)
}
