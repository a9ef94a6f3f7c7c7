package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/server/middleware"
)

// GetUsageHandler returns the accumulated token usage for this process.
func GetUsageHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, app.Orchestrator.Usage().Snapshot())
}

// ResetUsageHandler zeroes the token accumulator.
func ResetUsageHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	app.Orchestrator.Usage().Reset()
	return c.NoContent(http.StatusNoContent)
}
