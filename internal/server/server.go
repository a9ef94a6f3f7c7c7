package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planrag/backend/internal/queue"
	mid "github.com/planrag/backend/internal/server/middleware"
	"github.com/planrag/backend/internal/util"
	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/ai/ollama"
	"github.com/planrag/backend/pkg/ai/openai"
	"github.com/planrag/backend/pkg/embed"
	"github.com/planrag/backend/pkg/enrich"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/query"
	"github.com/planrag/backend/pkg/store"
	"github.com/planrag/backend/pkg/store/memory"
	pgxstore "github.com/planrag/backend/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rabbitmq/amqp091-go"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewAIClient builds the AI client named by AI_ADAPTER. "ollama" talks to an
// Ollama server, anything else goes through the OpenAI-compatible client.
func NewAIClient() ai.Client {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := ollama.NewClient(ollama.NewClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			GenerationModel: util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return openai.NewClient(openai.NewClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			GenerationModel: util.GetEnv("AI_CHAT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

// NewGraphStore builds the graph backend named by STORE_BACKEND. "postgres"
// runs the embedded migrations and returns a pgvector-backed store; anything
// else falls back to the in-memory store.
func NewGraphStore(ctx context.Context) (store.GraphStorage, func()) {
	if util.GetEnv("STORE_BACKEND") != "postgres" {
		return memory.New(), func() {}
	}

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := pgxstore.RunMigrations(databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database url", "err", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}

	gs, err := pgxstore.NewGraphDBStorageWithConnection(ctx, pool)
	if err != nil {
		logger.Fatal("Failed to create graph storage", "err", err)
	}
	return gs, pool.Close
}

// NewEmbeddingCache builds the embedding cache. EMBED_CACHE_DIR selects the
// file-backed store, otherwise records live in memory only.
func NewEmbeddingCache(client ai.Client) *embed.Cache {
	var recordStore embed.RecordStore
	if dir := util.GetEnv("EMBED_CACHE_DIR"); dir != "" {
		fs, err := embed.NewFileStore(dir)
		if err != nil {
			logger.Fatal("Failed to open embedding cache", "dir", dir, "err", err)
		}
		recordStore = fs
	} else {
		recordStore = embed.NewMemStore()
	}

	return embed.NewCache(embed.NewCacheParams{
		Embedder:  client,
		Store:     recordStore,
		Normalize: util.GetEnvBool("EMBED_NORMALIZE", false),
		Dimension: int(util.GetEnvNumeric("EMBED_DIMENSION", 0)),
		Parallel:  int(util.GetEnvNumeric("AI_PARALLEL_REQ", 8)),
	})
}

// NewPipeline builds the enrichment pipeline over the given collaborators.
// EXTRACTION_ENABLED toggles AI entity extraction.
func NewPipeline(client ai.Client, gs store.GraphStorage, cache *embed.Cache) *enrich.Pipeline {
	var extractor enrich.Extractor
	if util.GetEnvBool("EXTRACTION_ENABLED", false) {
		extractor = enrich.NewAIExtractor(enrich.AIExtractorParams{
			Client: client,
			Model:  util.GetEnv("AI_EXTRACT_MODEL"),
		})
	}

	return enrich.NewPipeline(enrich.PipelineParams{
		Store:     gs,
		Cache:     cache,
		Extractor: extractor,
		Encoder:   util.GetEnv("TOKEN_ENCODING"),
		MaxTokens: int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", 600)),
	})
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gs, closeStore := NewGraphStore(ctx)
	defer closeStore()

	client := NewAIClient()
	cache := NewEmbeddingCache(client)
	pipeline := NewPipeline(client, gs, cache)
	orchestrator := query.NewOrchestrator(query.OrchestratorParams{
		Client:     client,
		Cache:      cache,
		Store:      gs,
		ContextCap: int(util.GetEnvNumeric("CONTEXT_CAP_TOKENS", 2000)),
	})

	var ch *amqp091.Channel
	if util.GetEnvBool("QUEUE_ENABLED", false) {
		que := queue.Init()
		defer que.Close()

		var err error
		ch, err = que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
	}

	e.Use(mid.AppContextMiddleware(&mid.App{
		Store:        gs,
		Cache:        cache,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Queue:        ch,
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
