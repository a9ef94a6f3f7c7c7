package query

import (
	"context"
	"errors"
	"regexp"

	"github.com/planrag/backend/pkg/schema"
	"github.com/planrag/backend/pkg/store"
)

// VersionEntry is one drawing version in a supersession chain.
type VersionEntry struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
	Status  string `json:"status,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Impact is one entity reached by walking AFFECTS edges out from a changed
// drawing, with the severity declared on the edge that reached it.
type Impact struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Severity string `json:"severity,omitempty"`
	Hops     int    `json:"hops"`
}

// ComplianceEntry is one REQUIRES edge of a component together with its
// declared compliance status.
type ComplianceEntry struct {
	RequirementID string `json:"requirement_id"`
	Status        string `json:"status,omitempty"`
	CodeSection   string `json:"code_section,omitempty"`
}

// maxImpactHops bounds the AFFECTS walk for impact reports.
const maxImpactHops = 2

var drawingNumberRe = regexp.MustCompile(`\b[A-Z]{1,3}-\d{2,4}[A-Z]?\b`)

// extractDrawingNumber pulls the first drawing-number token out of free text.
func extractDrawingNumber(s string) string {
	return drawingNumberRe.FindString(s)
}

// DrawingVersions resolves the supersession chain for a drawing number,
// newest first. An unknown drawing number yields an empty history.
func DrawingVersions(ctx context.Context, gs store.GraphStorage, drawingNumber string) ([]VersionEntry, error) {
	chain, err := gs.VersionChain(ctx, drawingNumber)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]VersionEntry, 0, len(chain))
	for _, n := range chain {
		entries = append(entries, VersionEntry{
			ID:      n.ID,
			Version: n.Fields["version"],
			Status:  n.Fields["status"],
			Date:    n.Fields["date"],
		})
	}
	return entries, nil
}

// ImpactReport follows outgoing AFFECTS edges from the changed drawing up to
// maxImpactHops away, attaching each reached entity's declared severity.
func ImpactReport(ctx context.Context, gs store.GraphStorage, rootID string) ([]Impact, error) {
	if _, err := gs.GetNode(ctx, rootID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}
	var impacts []Impact

	for hop := 1; hop <= maxImpactHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			edges, err := gs.Edges(ctx, id, schema.RelAffects, store.DirectionOut)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if visited[e.Dst] {
					continue
				}
				visited[e.Dst] = true
				n, err := gs.GetNode(ctx, e.Dst)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					return nil, err
				}
				impacts = append(impacts, Impact{
					ID:       e.Dst,
					Kind:     string(n.Kind),
					Severity: e.Fields[schema.FieldSeverity],
					Hops:     hop,
				})
				next = append(next, e.Dst)
			}
		}
		frontier = next
	}
	return impacts, nil
}

// ComplianceReport enumerates the component's REQUIRES edges and their
// compliance status.
func ComplianceReport(ctx context.Context, gs store.GraphStorage, componentID string) ([]ComplianceEntry, error) {
	edges, err := gs.Edges(ctx, componentID, schema.RelRequires, store.DirectionOut)
	if err != nil {
		return nil, err
	}

	entries := make([]ComplianceEntry, 0, len(edges))
	for _, e := range edges {
		entry := ComplianceEntry{
			RequirementID: e.Dst,
			Status:        e.Fields[schema.FieldComplianceStatus],
		}
		if n, err := gs.GetNode(ctx, e.Dst); err == nil {
			entry.CodeSection = n.Fields["section"]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
