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

// GetComplianceHandler reports the requirements a component is linked to via
// REQUIRES edges, with the recorded compliance status per requirement.
func GetComplianceHandler(c echo.Context) error {
	type getComplianceParams struct {
		ID string `param:"id" validate:"required"`
	}

	type complianceResponse struct {
		ID           string                  `json:"id"`
		Requirements []query.ComplianceEntry `json:"requirements"`
	}

	params := new(getComplianceParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if _, err := app.Store.GetNode(ctx, params.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Component not found"})
		}
		logger.Error("Failed to load component", "id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	entries, err := query.ComplianceReport(ctx, app.Store, params.ID)
	if err != nil {
		logger.Error("Failed to resolve compliance", "id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, complianceResponse{
		ID:           params.ID,
		Requirements: entries,
	})
}
