package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/planrag/backend/internal/queue"
	"github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/pkg/enrich"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/schema"
)

// CreateDocumentHandler ingests a document into the knowledge graph. With
// async=true the document is queued for the worker instead of being
// processed inline.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		Text                string          `json:"text" validate:"required"`
		Metadata            enrich.Metadata `json:"metadata"`
		Async               bool            `json:"async"`
		DisableSupersession bool            `json:"disable_supersession"`
	}

	data := new(createDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if data.Async {
		if app.Queue == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Async ingestion is not configured"})
		}
		body, err := json.Marshal(queue.IngestMessage{
			Text:                data.Text,
			Metadata:            data.Metadata,
			DisableSupersession: data.DisableSupersession,
		})
		if err != nil {
			logger.Error("Failed to marshal ingest message", "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
			logger.Error("Failed to publish ingest message", "err", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
		return c.JSON(http.StatusAccepted, map[string]string{
			"id":     data.Metadata.ID,
			"status": "queued",
		})
	}

	id, err := app.Pipeline.Ingest(ctx, data.Text, data.Metadata, enrich.IngestOptions{
		DisableSupersession: data.DisableSupersession,
	})
	if err != nil {
		var schemaErr *schema.SchemaError
		if errors.As(err, &schemaErr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": schemaErr.Error()})
		}
		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusConflict, map[string]string{"message": validationErr.Error()})
		}
		logger.Error("Failed to ingest document", "id", data.Metadata.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"id":     id,
		"status": "ingested",
	})
}
