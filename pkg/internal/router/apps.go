package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/appvault/pkg/internal/handle"
)

// RegisterAppsRoutes 注册应用及其下属文件/版本/部署路由.
func RegisterAppsRoutes(g *gin.RouterGroup) {
	g.GET("/shards", handle.ListShards)

	appsRoutes := g.Group("/apps")
	{
		appsRoutes.POST("", handle.CreateApp)
		appsRoutes.GET("", handle.ListApps)

		appRoutes := appsRoutes.Group("/:slug")
		{
			appRoutes.GET("", handle.GetApp)
			appRoutes.DELETE("", handle.DeleteApp)

			// 文件内容：通配路径支持多级目录.
			// 迁移端点不能挂在 /files 下，静态段会与 *path 通配冲突
			appRoutes.GET("/files", handle.ListFiles)
			appRoutes.GET("/files/*path", handle.ReadFile)
			appRoutes.PUT("/files/*path", handle.WriteFile)
			appRoutes.DELETE("/files/*path", handle.DeleteFile)
			appRoutes.POST("/migrate", handle.MigrateFile)
			appRoutes.POST("/migrate/batch", handle.MigrateFilesBatch)

			// 版本快照. diff 不能挂在 /versions 下，静态段会与 :version 冲突
			appRoutes.GET("/diff", handle.DiffVersions)

			versionRoutes := appRoutes.Group("/versions")
			{
				versionRoutes.POST("", handle.CreateSnapshot)
				versionRoutes.GET("", handle.ListVersions)
				versionRoutes.GET("/:version", handle.GetVersion)
				versionRoutes.POST("/:version/restore", handle.RestoreVersion)
			}

			// 部署
			deployRoutes := appRoutes.Group("/deployments")
			{
				deployRoutes.POST("", handle.Deploy)
				deployRoutes.GET("", handle.ListDeployments)
				deployRoutes.GET("/status", handle.DeploymentStatus)
				deployRoutes.POST("/:id/outcome", handle.MarkDeploymentOutcome)
				deployRoutes.POST("/:id/rollback", handle.RollbackDeployment)
			}
		}
	}
}
