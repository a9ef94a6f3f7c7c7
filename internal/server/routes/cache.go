package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/pkg/logger"
)

// GetCacheStatsHandler reports the embedding cache's record count and
// vector configuration.
func GetCacheStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Cache.GetStats()
	if err != nil {
		logger.Error("Failed to read cache stats", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// ClearCacheHandler drops every cached embedding and returns the number of
// records removed.
func ClearCacheHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	removed, err := app.Cache.Clear()
	if err != nil {
		logger.Error("Failed to clear cache", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}
