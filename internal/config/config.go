// Package config loads runtime configuration for the retrieval service.
package config

// LLMConfig describes one pluggable answer-LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// EmbeddingConfig describes the dense embedding service.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Path       string `yaml:"path"`
	APIKey     string `yaml:"api_key,omitempty"`
	AuthHeader string `yaml:"auth_header,omitempty"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

// SparseEncoderConfig describes the SPLADE-style lexical-weight service.
type SparseEncoderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxScore  float64 `yaml:"max_score"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// RerankerConfig describes the cross-encoder reranking service.
type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TopN      int    `yaml:"top_n"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// FusionConfig controls hybrid dense+sparse score fusion.
type FusionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	DenseWeight float64 `yaml:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight"`
	BM25SMax    float64 `yaml:"bm25_s_max"`
}

// VectorStoreConfig selects and configures the dense/hybrid vector backend.
type VectorStoreConfig struct {
	NativeEnabled bool   `yaml:"native_enabled"`
	NativeURL     string `yaml:"native_url"`
	Collection    string `yaml:"collection"`
	Metric        string `yaml:"metric"`
}

// GraphConfig configures the property-graph store.
type GraphConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Backend  string `yaml:"backend"` // "postgres", "memory", "none"
	URI      string `yaml:"uri,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// MemoryConfig configures the session/query-cache memory service.
type MemoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Backend       string `yaml:"backend"` // "network-kv", "embedded-db"
	Persistent    bool   `yaml:"persistent"`
	NetworkURL    string `yaml:"network_url,omitempty"`
	EmbeddedPath  string `yaml:"embedded_path,omitempty"`
	MaxHistory    int    `yaml:"max_history"`
	SessionTTLSec int    `yaml:"session_ttl_seconds"`
}

// DBConfig selects relational/vector/graph backends.
type DBConfig struct {
	DSN            string `yaml:"dsn"`
	VectorBackend  string `yaml:"vector_backend"` // "postgres", "qdrant", "memory", "none"
	GraphBackend   string `yaml:"graph_backend"`  // "postgres", "memory", "none"
}

// ObsConfig configures OpenTelemetry export.
type ObsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	OTLP        string `yaml:"otlp_endpoint"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
}

// RetrievalConfig holds the tunables named in the retrieval orchestrator.
type RetrievalConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// Config is the fully resolved runtime configuration for the service.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`

	LLM       LLMConfig
	Embedding EmbeddingConfig
	Sparse    SparseEncoderConfig
	Reranker  RerankerConfig
	Fusion    FusionConfig
	Vector    VectorStoreConfig
	Graph     GraphConfig
	Memory    MemoryConfig
	DB        DBConfig
	Obs       ObsConfig
	Retrieval RetrievalConfig

	// UpstreamCatalogURL points at the external drug/disease catalog
	// collaborator consulted during ingestion sync.
	UpstreamCatalogURL string `yaml:"upstream_catalog_url,omitempty"`
}
