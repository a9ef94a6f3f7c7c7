package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/query"
	"github.com/planrag/backend/pkg/store"
)

// QueryHandler answers a natural-language question against the knowledge
// graph. Mode, top_k and intent override the routed binding when set.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Question string `json:"question" validate:"required"`
		Mode     string `json:"mode" validate:"omitempty,oneof=naive local global"`
		TopK     int    `json:"top_k" validate:"omitempty,min=1,max=50"`
		Intent   string `json:"intent"`
		Stream   bool   `json:"stream"`
	}

	type queryResponse struct {
		*query.Result
		Usage query.Usage `json:"usage"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	result, err := app.Orchestrator.Query(ctx, data.Question, query.Options{
		Intent: query.Intent(data.Intent),
		Mode:   store.Mode(data.Mode),
		TopK:   data.TopK,
		Stream: data.Stream,
	})
	if err != nil {
		var timeout *ai.UpstreamTimeout
		if errors.As(err, &timeout) {
			return c.JSON(http.StatusGatewayTimeout, map[string]string{"message": "Model backend timed out"})
		}
		logger.Error("Query failed", "stage", result.Stage, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Result: result,
		Usage:  app.Orchestrator.Usage().Snapshot(),
	})
}
