package databases

import "context"

// VectorResult represents a single nearest neighbor lookup result.
type VectorResult struct {
	ID       string
	Score    float64 // Higher is closer by default
	Metadata map[string]string
}

// VectorStore defines the minimum interface for a pluggable dense-vector
// index, backing the Dense Index Client and the pgvector arm of the
// Vector Store Adapter.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
	Dimension() int
}

// Node is a minimal representation of a property-graph node.
type Node struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// Edge is a directed relation from the queried node, carrying whatever
// relation properties (severity, efficacy_level, similarity_score, …)
// the caller needs to rank or filter on.
type Edge struct {
	Target string
	Props  map[string]any
}

// GraphDB defines a portable interface for the property-graph store backing
// drug/disease/symptom relationships.
type GraphDB interface {
	UpsertNode(ctx context.Context, id string, labels []string, props map[string]any) error
	UpsertEdge(ctx context.Context, srcID, rel, dstID string, props map[string]any) error
	Neighbors(ctx context.Context, id string, rel string) ([]string, error)
	Edges(ctx context.Context, id string, rel string) ([]Edge, error)
	GetNode(ctx context.Context, id string) (Node, bool)
}

// Manager holds concrete database backends resolved from configuration.
type Manager struct {
	Vector VectorStore
	Graph  GraphDB
}

// Close attempts to close any underlying pools. It's a no-op for memory backends.
func (m Manager) Close() {
	if c, ok := any(m.Vector).(interface{ Close() }); ok {
		c.Close()
	}
	if c, ok := any(m.Graph).(interface{ Close() }); ok {
		c.Close()
	}
}
