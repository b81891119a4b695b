package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/appvault/pkg/configs"
)

// RegisterSwaggerRoute 注册Swagger文档路由，仅在 Debug 模式开放.
func RegisterSwaggerRoute(r *gin.Engine) {
	if !configs.GetConfig().Server.Debug {
		return
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
