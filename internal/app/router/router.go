// Package router assembles the HTTP routes of the pipeline server.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	priceshandler "stock_pipeline/internal/feature/prices/transport/handler"
)

// NewRouter registers every route. health serves /healthz.
// Cross-origin requests are allowed only from corsOrigins; an empty list installs no CORS handling.
func NewRouter(prices *priceshandler.PricesHandler, health gin.HandlerFunc, corsOrigins []string) *gin.Engine {
	r := gin.Default()
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "HEAD", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	r.POST("/pipeline/run", prices.Run)
	r.GET("/prices/:ticker/series", prices.GetSeries)

	return r
}
