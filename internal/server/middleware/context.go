package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/enrich"
	"github.com/planrag/backend/pkg/query"
	"github.com/planrag/backend/pkg/store"
)

// App bundles the long-lived collaborators every handler needs. Queue is nil
// when asynchronous ingestion is not configured.
type App struct {
	Store        store.GraphStorage
	Cache        *embed.Cache
	Pipeline     *enrich.Pipeline
	Orchestrator *query.Orchestrator
	Queue        *amqp091.Channel
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
