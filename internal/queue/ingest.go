package queue

import (
	"context"
	"encoding/json"

	"github.com/planrag/backend/internal/util"
	"github.com/planrag/backend/pkg/enrich"
	"github.com/planrag/backend/pkg/logger"
)

// IngestMessage is one document queued for asynchronous enrichment.
type IngestMessage struct {
	Text                string          `json:"text"`
	Metadata            enrich.Metadata `json:"metadata"`
	DisableSupersession bool            `json:"disable_supersession,omitempty"`
}

// ProcessIngestMessage runs one queued document through the enrichment
// pipeline. Upstream failures are retried; ingestion is idempotent so a
// retry of partially applied state is safe.
func ProcessIngestMessage(ctx context.Context, pipeline *enrich.Pipeline, msg string) error {
	data := new(IngestMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	maxTries := int(util.GetEnvNumeric("INGEST_MAX_TRIES", 3))
	id, err := util.RetryWithContext(ctx, maxTries, func(ctx context.Context) (string, error) {
		return pipeline.Ingest(ctx, data.Text, data.Metadata, enrich.IngestOptions{
			DisableSupersession: data.DisableSupersession,
		})
	})
	if err != nil {
		return err
	}

	logger.Info("Document ingested", "id", id)
	return nil
}
