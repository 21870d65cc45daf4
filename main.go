// main.go wires the retrieval-core service together: configuration,
// persistence, the collaborator clients, the retrieval orchestrator,
// and the HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"retrievalcore/internal/apperrors"
	"retrievalcore/internal/catalog"
	"retrievalcore/internal/config"
	"retrievalcore/internal/fusion"
	"retrievalcore/internal/graph"
	"retrievalcore/internal/httpapi"
	"retrievalcore/internal/ingestion"
	"retrievalcore/internal/llmanswer"
	"retrievalcore/internal/memory"
	"retrievalcore/internal/memorystore"
	"retrievalcore/internal/observability"
	"retrievalcore/internal/persistence/databases"
	"retrievalcore/internal/rag/chunker"
	"retrievalcore/internal/rag/embedder"
	"retrievalcore/internal/reranker"
	"retrievalcore/internal/retrieve"
	"retrievalcore/internal/sparseencoder"
	"retrievalcore/internal/upstreamcatalog"
	"retrievalcore/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wire service")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	httpapi.RegisterRoutes(e, app)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	go func() {
		log.Info().Str("addr", addr).Msg("retrieval-core listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// wire constructs every collaborator named in the representative
// component list and assembles the httpapi.Handler that serves them.
// Every hard dependency (the relational catalog store, an unresolvable
// answer-LLM provider) fails fast; every soft dependency (reranker,
// sparse encoder, graph backend, memory backend) degrades per its own
// package's documented posture instead of blocking startup.
func wire(ctx context.Context, cfg config.Config) (*httpapi.Handler, error) {
	if cfg.DB.DSN == "" {
		return nil, apperrors.NewFatalConfigError("DATABASE_URL is required for the catalog store", nil)
	}
	catalogPool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, apperrors.NewFatalConfigError("connect catalog database", err)
	}
	catalogStore, err := catalog.NewPostgresStore(ctx, catalogPool)
	if err != nil {
		return nil, apperrors.NewFatalConfigError("initialize catalog schema", err)
	}

	httpClient := observability.NewHTTPClient(nil)

	dim := cfg.Embedding.Dimensions
	dbManager, err := databases.NewManager(ctx, cfg.DB, cfg.Vector, dim)
	if err != nil {
		return nil, apperrors.NewFatalConfigError("initialize vector/graph backends", err)
	}

	embed := embedder.NewClient(cfg.Embedding, dim)
	sparse := sparseencoder.NewClient(cfg.Sparse)

	var drugStore vectorstore.Store
	if cfg.Vector.NativeEnabled {
		drugStore = vectorstore.NewNativeStore(dbManager.Vector, sparse, cfg.Vector.Collection)
	} else {
		drugStore = vectorstore.NewFallbackStore(dbManager.Vector, cfg.Vector.Collection)
	}
	// Disease search has no standalone ingestion path yet (§4.12 only
	// syncs drugs); an in-memory collection keeps SearchDiseases wired
	// and functional for whatever later process upserts disease vectors
	// into it, without forcing a second configured backend.
	diseaseStore := vectorstore.NewFallbackStore(databases.NewMemoryVector(), cfg.Vector.Collection+"_diseases")

	rerankClient := reranker.NewClient(cfg.Reranker)

	var graphEnricher retrieve.GraphEnricher
	graphSvc := &graph.Service{DB: dbManager.Graph}
	if cfg.Graph.Enabled {
		graphEnricher = graphSvc
	}

	llmClient, err := llmanswer.New(llmanswer.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	}, httpClient)
	if err != nil {
		return nil, apperrors.NewFatalConfigError("initialize answer LLM", err)
	}

	orchestrator := &retrieve.Orchestrator{
		Drugs:    drugStore,
		Diseases: diseaseStore,
		Catalog:  catalogStore,
		Embedder: embedder.Single{Embedder: embed},
		Reranker: rerankClient,
		Graph:    graphEnricher,
		LLM:      llmClient,
		Weights: fusion.Weights{
			Dense:  cfg.Fusion.DenseWeight,
			Sparse: cfg.Fusion.SparseWeight,
			SMax:   cfg.Fusion.BM25SMax,
		},
	}

	memStore, err := newMemoryStore(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewFatalConfigError("initialize memory store", err)
	}
	memSvc := &memory.Service{Store: memStore}

	upstream := upstreamcatalog.NewClient(cfg.UpstreamCatalogURL)
	pipeline := &ingestion.Pipeline{
		Upstream: upstream,
		Catalog:  catalogStore,
		Vectors:  drugStore,
		Embedder: embed,
		Chunker:  chunker.SimpleChunker{},
	}

	return &httpapi.Handler{
		Orchestrator: orchestrator,
		Catalog:      catalogStore,
		Graph:        graphSvc,
		Memory:       memSvc,
		Ingestion:    pipeline,
	}, nil
}

// newMemoryStore selects the §4.9 memory backend named by
// cfg.Memory.Backend: "network-kv" dials Redis (degrading to a
// disabled latch on a failed ping rather than failing startup),
// "embedded-db" opens the local SQLite file.
func newMemoryStore(ctx context.Context, cfg config.Config) (memorystore.Store, error) {
	switch cfg.Memory.Backend {
	case "network-kv":
		return memorystore.NewRedisStore(ctx, cfg.Memory.NetworkURL)
	case "", "embedded-db":
		return memorystore.NewSQLiteStore(cfg.Memory.EmbeddedPath)
	default:
		return nil, fmt.Errorf("unsupported memory backend: %s", cfg.Memory.Backend)
	}
}
