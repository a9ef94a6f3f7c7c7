package store

import (
	"context"
	"errors"

	"github.com/planrag/backend/pkg/schema"
)

// ErrNotFound is returned when a node lookup misses.
var ErrNotFound = errors.New("node not found")

// Direction selects which way edges are followed during traversal.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Mode selects the retrieval strategy for similarity search.
//
//   - ModeNaive: flat similarity search over all passages.
//   - ModeLocal: similarity search restricted to the bounded neighborhood
//     around directly matched entities. Entities with no path to a matched
//     entity cannot surface.
//   - ModeGlobal: similarity search able to span entities with no direct
//     edge between them, combined with graph-wide aggregates.
type Mode string

const (
	ModeNaive  Mode = "naive"
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
)

// ValidMode reports whether m is a recognized retrieval mode.
func ValidMode(m Mode) bool {
	return m == ModeNaive || m == ModeLocal || m == ModeGlobal
}

// Node is a stored entity in its flat record form.
type Node struct {
	ID     string        `json:"id"`
	Kind   schema.Kind   `json:"kind"`
	Fields schema.Record `json:"fields"`
}

// Edge is a stored directed relationship with its attributes.
type Edge struct {
	ID     string         `json:"id"`
	Src    string         `json:"src"`
	Dst    string         `json:"dst"`
	Kind   schema.RelKind `json:"kind"`
	Fields schema.Record  `json:"fields"`
}

// Passage is a retrievable text fragment linked to its source node.
type Passage struct {
	ID     string  `json:"id"`
	NodeID string  `json:"node_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// GraphStorage is the contract the core requires from the physical graph
// engine: node/edge upsert, ID lookup, typed traversal, and vector
// similarity search. Upserts to the same node ID are serialized by the
// implementation to prevent lost updates to mutable fields.
type GraphStorage interface {
	// UpsertNode creates the node or merges fields into the existing record.
	UpsertNode(ctx context.Context, id string, kind schema.Kind, fields schema.Record) error

	// UpsertEdge creates the edge or merges fields into it. At most one edge
	// exists per (src, dst, kind), so re-ingestion never duplicates edges.
	UpsertEdge(ctx context.Context, src, dst string, kind schema.RelKind, fields schema.Record) error

	// GetNode returns the node with the given ID or ErrNotFound.
	GetNode(ctx context.Context, id string) (*Node, error)

	// Edges returns the edges of the given kind touching nodeID in the given
	// direction, with their attributes.
	Edges(ctx context.Context, nodeID string, kind schema.RelKind, dir Direction) ([]Edge, error)

	// Traverse follows edges of one kind from nodeID up to maxHops and
	// returns the visited nodes in breadth-first order, excluding the start.
	Traverse(ctx context.Context, nodeID string, kind schema.RelKind, dir Direction, maxHops int) ([]Node, error)

	// SavePassage stores a retrievable text fragment with its vector,
	// linked to the node it was extracted for. Saving the same (nodeID,
	// text) twice keeps a single passage.
	SavePassage(ctx context.Context, nodeID, text string, embedding []float32) error

	// SimilaritySearch returns the topK passages ranked by similarity to the
	// query vector under the given mode.
	SimilaritySearch(ctx context.Context, query []float32, mode Mode, topK int) ([]Passage, error)

	// CurrentVersion returns the drawing holding a current (non-superseded,
	// non-void) status for the drawing number, or ErrNotFound.
	CurrentVersion(ctx context.Context, drawingNumber string) (*Node, error)

	// VersionChain returns every version of the drawing number ordered
	// newest-first by following SUPERSEDES edges from the current version.
	VersionChain(ctx context.Context, drawingNumber string) ([]Node, error)
}
