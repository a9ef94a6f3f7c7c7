package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/query"
)

// GetDrawingVersionsHandler lists a drawing's versions newest-first,
// following its supersession chain from the current version.
func GetDrawingVersionsHandler(c echo.Context) error {
	type getVersionsParams struct {
		Number string `param:"number" validate:"required"`
	}

	type versionsResponse struct {
		DrawingNumber string               `json:"drawing_number"`
		Versions      []query.VersionEntry `json:"versions"`
	}

	params := new(getVersionsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	versions, err := query.DrawingVersions(ctx, app.Store, params.Number)
	if err != nil {
		logger.Error("Failed to resolve drawing versions", "drawing_number", params.Number, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	if len(versions) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Drawing not found"})
	}

	return c.JSON(http.StatusOK, versionsResponse{
		DrawingNumber: params.Number,
		Versions:      versions,
	})
}
