package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/appvault/pkg/context"
)

const timeout = 2 * time.Second

// Healthz 聚合健康检查：db/s3/mq 任一不可用即整体 unhealthy.
func Healthz(c *gin.Context) {
	components := gin.H{}
	healthy := true

	if err := checkDB(c); err != "" {
		components["db"] = err
		healthy = false
	} else {
		components["db"] = "ok"
	}

	if err := checkS3(c); err != "" {
		components["s3"] = err
		healthy = false
	} else {
		components["s3"] = "ok"
	}

	if err := checkMQ(c); err != "" {
		components["mq"] = err
		healthy = false
	} else {
		components["mq"] = "ok"
	}

	status := http.StatusOK
	overall := "ok"

	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{"status": overall, "components": components})
}

// checkDB 返回空串表示健康，否则为错误描述.
func checkDB(c *gin.Context) string {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		return "db client not initialized"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		return err.Error()
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return err.Error()
	}

	return ""
}

func checkS3(c *gin.Context) string {
	s3c := ctxPkg.GetS3Client(c.Request.Context())
	if s3c == nil || s3c.Client == nil {
		return "s3 client not initialized"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := s3c.HealthCheck(ctx); err != nil {
		return err.Error()
	}

	return ""
}

func checkMQ(c *gin.Context) string {
	if mqc := ctxPkg.GetMQClient(c.Request.Context()); mqc == nil {
		return "mq client not initialized"
	}

	return ""
}

// HealthDB 数据库健康检查.
func HealthDB(c *gin.Context) {
	if msg := checkDB(c); msg != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": msg})

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "db", "status": "ok"})
}

// HealthS3 对象存储健康检查.
func HealthS3(c *gin.Context) {
	if msg := checkS3(c); msg != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "s3", "status": "unhealthy", "error": msg})

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "s3", "status": "ok"})
}

// HealthMQ 消息队列健康检查.
func HealthMQ(c *gin.Context) {
	if msg := checkMQ(c); msg != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "mq", "status": "unhealthy", "error": msg})

		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "mq", "status": "ok"})
}
