package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load reads configuration from the process environment, optionally
// overlaid first by a .env file (via godotenv.Overload) and then by a
// YAML file named by CONFIG_FILE, if set. Env vars always win over the
// YAML overlay so deployments can override a checked-in config file
// without editing it.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	cfg.Host = firstNonEmpty(strings.TrimSpace(os.Getenv("HOST")), cfg.Host, "0.0.0.0")
	cfg.Port = intFromEnv("PORT", defaultInt(cfg.Port, 8080))
	cfg.LogPath = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_PATH")), cfg.LogPath)
	cfg.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), cfg.LogLevel, "info")

	cfg.LLM.Provider = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), cfg.LLM.Provider, "openai")
	cfg.LLM.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), cfg.LLM.Model)
	switch cfg.LLM.Provider {
	case "anthropic":
		cfg.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")), cfg.LLM.APIKey)
		cfg.LLM.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")), cfg.LLM.BaseURL)
	case "google":
		cfg.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GOOGLE_LLM_API_KEY")), cfg.LLM.APIKey)
		cfg.LLM.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("GOOGLE_LLM_BASE_URL")), cfg.LLM.BaseURL)
	default:
		cfg.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("OPENAI_API_KEY")), cfg.LLM.APIKey)
		cfg.LLM.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), cfg.LLM.BaseURL)
	}

	cfg.Embedding.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL")), cfg.Embedding.BaseURL)
	cfg.Embedding.Path = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_PATH")), cfg.Embedding.Path, "/v1/embeddings")
	cfg.Embedding.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")), cfg.Embedding.APIKey)
	cfg.Embedding.AuthHeader = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_AUTH_HEADER")), cfg.Embedding.AuthHeader, "Authorization")
	cfg.Embedding.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")), cfg.Embedding.Model)
	cfg.Embedding.Dimensions = intFromEnv("EMBEDDING_DIMENSIONS", defaultInt(cfg.Embedding.Dimensions, 1536))
	cfg.Embedding.TimeoutMS = intFromEnv("EMBEDDING_TIMEOUT_MS", defaultInt(cfg.Embedding.TimeoutMS, 10000))

	cfg.Sparse.Enabled = boolFromEnv("ENABLE_SPARSE_ENCODER", cfg.Sparse.Enabled)
	cfg.Sparse.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("SPLADE_BASE_URL")), cfg.Sparse.BaseURL)
	cfg.Sparse.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("SPLADE_MODEL")), cfg.Sparse.Model)
	cfg.Sparse.MaxScore = floatFromEnv("SPLADE_MAX_SCORE", defaultFloat(cfg.Sparse.MaxScore, 10))
	cfg.Sparse.TimeoutMS = intFromEnv("SPLADE_TIMEOUT_MS", defaultInt(cfg.Sparse.TimeoutMS, 5000))

	cfg.Reranker.Enabled = boolFromEnv("ENABLE_RERANKING", cfg.Reranker.Enabled)
	cfg.Reranker.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("RERANK_BASE_URL")), cfg.Reranker.BaseURL)
	cfg.Reranker.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("COHERE_RERANK_MODEL")), cfg.Reranker.Model)
	cfg.Reranker.TopN = intFromEnv("RERANK_TOP_N", defaultInt(cfg.Reranker.TopN, 5))
	cfg.Reranker.TimeoutMS = intFromEnv("RERANK_TIMEOUT_MS", defaultInt(cfg.Reranker.TimeoutMS, 5000))

	cfg.Fusion.Enabled = boolFromEnvDefault("ENABLE_HYBRID_SEARCH", cfg.Fusion.Enabled, true)
	cfg.Fusion.DenseWeight = floatFromEnv("DENSE_WEIGHT", defaultFloat(cfg.Fusion.DenseWeight, 0.7))
	cfg.Fusion.SparseWeight = floatFromEnv("SPARSE_WEIGHT", defaultFloat(cfg.Fusion.SparseWeight, 0.3))
	cfg.Fusion.BM25SMax = floatFromEnv("BM25_S_MAX", defaultFloat(cfg.Fusion.BM25SMax, 30))

	cfg.Vector.NativeEnabled = boolFromEnv("ENABLE_NATIVE_VECTOR_STORE", cfg.Vector.NativeEnabled)
	cfg.Vector.NativeURL = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_URL")), cfg.Vector.NativeURL)
	cfg.Vector.Collection = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_COLLECTION")), cfg.Vector.Collection, "drug_chunks")
	cfg.Vector.Metric = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_METRIC")), cfg.Vector.Metric, "cosine")

	cfg.Graph.Enabled = boolFromEnv("ENABLE_GRAPH", cfg.Graph.Enabled)
	cfg.Graph.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("GRAPH_BACKEND")), cfg.Graph.Backend, "postgres")
	cfg.Graph.URI = firstNonEmpty(strings.TrimSpace(os.Getenv("NEO4J_URI")), cfg.Graph.URI)
	cfg.Graph.User = firstNonEmpty(strings.TrimSpace(os.Getenv("NEO4J_USER")), cfg.Graph.User)
	cfg.Graph.Password = firstNonEmpty(strings.TrimSpace(os.Getenv("NEO4J_PASSWORD")), cfg.Graph.Password)

	cfg.Memory.Enabled = boolFromEnv("ENABLE_MEMORY", cfg.Memory.Enabled)
	cfg.Memory.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("MEMORY_BACKEND")), cfg.Memory.Backend, "embedded-db")
	cfg.Memory.Persistent = boolFromEnv("ENABLE_PERSISTENT_MEMORY", cfg.Memory.Persistent)
	cfg.Memory.NetworkURL = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_URL")), cfg.Memory.NetworkURL)
	cfg.Memory.EmbeddedPath = firstNonEmpty(strings.TrimSpace(os.Getenv("MEMORY_DB_PATH")), cfg.Memory.EmbeddedPath, "memory.db")
	cfg.Memory.MaxHistory = intFromEnv("MEMORY_MAX_HISTORY", defaultInt(cfg.Memory.MaxHistory, 20))
	cfg.Memory.SessionTTLSec = intFromEnv("MEMORY_SESSION_TTL_SECONDS", defaultInt(cfg.Memory.SessionTTLSec, 3600))

	cfg.DB.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("DATABASE_URL")), cfg.DB.DSN)
	cfg.DB.VectorBackend = firstNonEmpty(strings.TrimSpace(os.Getenv("VECTOR_BACKEND")), cfg.DB.VectorBackend, "postgres")
	cfg.DB.GraphBackend = firstNonEmpty(strings.TrimSpace(os.Getenv("GRAPH_DB_BACKEND")), cfg.DB.GraphBackend, cfg.Graph.Backend)

	cfg.Obs.Enabled = boolFromEnv("ENABLE_OTEL", cfg.Obs.Enabled)
	cfg.Obs.OTLP = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")), cfg.Obs.OTLP)
	cfg.Obs.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), cfg.Obs.ServiceName, "retrieval-core")
	cfg.Obs.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("ENVIRONMENT")), cfg.Obs.Environment, "development")

	cfg.Retrieval.DefaultTopK = intFromEnv("DEFAULT_TOP_K", defaultInt(cfg.Retrieval.DefaultTopK, 5))
	cfg.Retrieval.MaxTopK = intFromEnv("MAX_TOP_K", defaultInt(cfg.Retrieval.MaxTopK, 20))

	cfg.UpstreamCatalogURL = firstNonEmpty(strings.TrimSpace(os.Getenv("UPSTREAM_CATALOG_URL")), cfg.UpstreamCatalogURL)

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := parseInt(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// boolFromEnvDefault is boolFromEnv with an explicit fallback: when the
// env var is unset, a true cur is kept and a false cur (including a false
// set by a YAML overlay) is replaced by fallback.
func boolFromEnvDefault(key string, cur bool, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		if cur {
			return cur
		}
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func defaultInt(cur, def int) int {
	if cur != 0 {
		return cur
	}
	return def
}

func defaultFloat(cur, def float64) float64 {
	if cur != 0 {
		return cur
	}
	return def
}
