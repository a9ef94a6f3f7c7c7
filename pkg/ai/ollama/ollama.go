package ollama

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/planrag/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client implements the ai.Client interface using Ollama as the backend.
// It supports text generation and embeddings via locally-hosted models and
// gates concurrent requests with a weighted semaphore to respect VRAM limits.
type Client struct {
	embeddingModel  string
	generationModel string

	reqLock *semaphore.Weighted
	timeout time.Duration

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	api *api.Client
}

// NewClientParams contains configuration options for creating a new Client.
type NewClientParams struct {
	EmbeddingModel  string
	GenerationModel string

	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
	Timeout               time.Duration
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates a new Ollama-based AI client. It connects to the Ollama
// server at the given BaseURL (or the default if empty) and uses the
// configured models for embedding and generation.
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.APIKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 4
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		embeddingModel:  params.EmbeddingModel,
		generationModel: params.GenerationModel,

		reqLock: semaphore.NewWeighted(maxReq),
		timeout: timeout,

		api: api.NewClient(u, httpClient),
	}, nil
}
