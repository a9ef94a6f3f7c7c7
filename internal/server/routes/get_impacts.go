package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/query"
	"github.com/planrag/backend/pkg/store"
)

// GetDrawingImpactsHandler walks outgoing AFFECTS edges from a drawing and
// reports the downstream components with severity and hop distance. The
// path segment is either a node ID or a drawing number; a drawing number
// resolves to its current version.
func GetDrawingImpactsHandler(c echo.Context) error {
	type getImpactsParams struct {
		Number string `param:"number" validate:"required"`
	}

	type impactsResponse struct {
		ID      string         `json:"id"`
		Impacts []query.Impact `json:"impacts"`
	}

	params := new(getImpactsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	node, err := app.Store.GetNode(ctx, params.Number)
	if errors.Is(err, store.ErrNotFound) {
		node, err = app.Store.CurrentVersion(ctx, params.Number)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Drawing not found"})
		}
		logger.Error("Failed to load drawing", "drawing", params.Number, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	impacts, err := query.ImpactReport(ctx, app.Store, node.ID)
	if err != nil {
		logger.Error("Failed to walk impacts", "id", node.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, impactsResponse{
		ID:      node.ID,
		Impacts: impacts,
	})
}
