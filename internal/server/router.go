package server

import (
	"relay-core/internal/handler"
	"relay-core/internal/handler/response"

	"relay-core/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewHTTPRouter initializes and returns a Gin engine with the relay routes
// mounted.
func NewHTTPRouter(relayHandler *handler.RelayHandler) *gin.Engine {
	monitor.Init()

	r := gin.Default()

	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, gin.H{"pong": true})
		})

		relay := api.Group("/relay")
		{
			relay.POST("/execute", relayHandler.ExecuteRelay)
			relay.POST("/sequence", relayHandler.ExecuteSequence)
			relay.POST("/mirror", relayHandler.ExecuteMirror)
		}
	}

	return r
}
