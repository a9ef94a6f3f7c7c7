package server

import (
	"github.com/planrag/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Document routes
	apiRoutes.POST("/documents", routes.CreateDocumentHandler)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)

	// Graph report routes
	apiRoutes.GET("/drawings/:number/versions", routes.GetDrawingVersionsHandler)
	apiRoutes.GET("/drawings/:number/impacts", routes.GetDrawingImpactsHandler)
	apiRoutes.GET("/components/:id/compliance", routes.GetComplianceHandler)

	// Bookkeeping routes
	apiRoutes.GET("/usage", routes.GetUsageHandler)
	apiRoutes.DELETE("/usage", routes.ResetUsageHandler)
	apiRoutes.GET("/cache/stats", routes.GetCacheStatsHandler)
	apiRoutes.DELETE("/cache", routes.ClearCacheHandler)
}
