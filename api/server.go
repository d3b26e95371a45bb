package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP engine with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s\" %s\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.ErrorMessage,
			)
		},
	}))
	r.Use(gin.Recovery())

	setupRoutes(r, handler)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.HealthCheck)

	imports := r.Group("/imports")
	{
		imports.POST("", handler.ImportRecords)
		imports.POST("/file", handler.ImportFile)
		imports.POST("/sold", handler.ImportSold)
	}
}
